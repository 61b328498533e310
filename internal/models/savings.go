package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/olumayowa/walletcore/internal/errs"
)

// PlanStatus is the state of a savings plan. completed is terminal.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanPaused    PlanStatus = "paused"
	PlanCompleted PlanStatus = "completed"
)

// Frequency is the contribution cadence of a savings plan.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyManual  Frequency = "manual"
)

// ParseFrequency validates a raw frequency string.
func ParseFrequency(raw string) (Frequency, error) {
	switch f := Frequency(raw); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyManual:
		return f, nil
	default:
		return "", errs.Newf(errs.CodeValidation, "frequency must be daily, weekly, monthly or manual, got %q", raw)
	}
}

// SavingsPlan is a goal amount accumulated via scheduled or manual
// partial debits.
type SavingsPlan struct {
	ID                   string
	OwnerID              string
	Title                string
	TargetAmount         decimal.Decimal
	CurrentAmount        decimal.Decimal
	Currency             Currency
	Frequency            Frequency
	AmountPerFrequency   decimal.Decimal
	NextContributionDate time.Time
	Status               PlanStatus
	CreatedAt            time.Time
}

// DueFor reports whether the scheduler should contribute to the plan.
func (p SavingsPlan) DueFor(now time.Time) bool {
	return p.Status == PlanActive && p.Frequency != FrequencyManual && !p.NextContributionDate.After(now)
}

// Completed reports whether the accumulated amount has reached the target.
func (p SavingsPlan) Completed() bool {
	return p.CurrentAmount.GreaterThanOrEqual(p.TargetAmount)
}

// NextDate advances a contribution date by one frequency step. The step is
// relative to the previous scheduled date, not the time the contribution
// actually ran, so the schedule never drifts.
func NextDate(from time.Time, f Frequency) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from
	}
}
