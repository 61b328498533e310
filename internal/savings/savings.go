// Package savings implements the recurring-contribution engine: goal
// plans advanced manually by the owner or on schedule by the scheduler.
package savings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/olumayowa/walletcore/internal/errs"
	"github.com/olumayowa/walletcore/internal/interfaces"
	"github.com/olumayowa/walletcore/internal/models"
	"github.com/olumayowa/walletcore/internal/wallet"
)

type Engine struct {
	store     interfaces.WalletStore
	accounts  *wallet.AccountLocks
	publisher interfaces.EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

func NewEngine(store interfaces.WalletStore, accounts *wallet.AccountLocks, publisher interfaces.EventPublisher, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:     store,
		accounts:  accounts,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the engine clock.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Create declares a new savings plan. No funds move at creation.
func (e *Engine) Create(ctx context.Context, ownerID, title string, target decimal.Decimal, currency models.Currency, frequency models.Frequency, perAmount decimal.Decimal, nextDate time.Time) (models.SavingsPlan, error) {
	if target.LessThanOrEqual(decimal.Zero) {
		return models.SavingsPlan{}, errs.New(errs.CodeValidation, "targetAmount must be a positive number")
	}
	if perAmount.LessThanOrEqual(decimal.Zero) {
		return models.SavingsPlan{}, errs.New(errs.CodeValidation, "amountPerFrequency must be a positive number")
	}
	if _, err := models.ParseCurrency(string(currency)); err != nil {
		return models.SavingsPlan{}, err
	}
	if _, err := models.ParseFrequency(string(frequency)); err != nil {
		return models.SavingsPlan{}, err
	}
	if title == "" {
		return models.SavingsPlan{}, errs.New(errs.CodeValidation, "title is required")
	}

	plan := models.SavingsPlan{
		ID:                   uuid.New().String(),
		OwnerID:              ownerID,
		Title:                title,
		TargetAmount:         target,
		CurrentAmount:        decimal.Zero,
		Currency:             currency,
		Frequency:            frequency,
		AmountPerFrequency:   perAmount,
		NextContributionDate: nextDate,
		Status:               models.PlanActive,
		CreatedAt:            e.now(),
	}
	if err := e.store.SavePlan(ctx, plan); err != nil {
		return models.SavingsPlan{}, err
	}
	return plan, nil
}

// ListByOwner lists the owner's savings plans.
func (e *Engine) ListByOwner(ctx context.Context, ownerID string) ([]models.SavingsPlan, error) {
	return e.store.ListPlansByOwner(ctx, ownerID)
}

// Contribute applies a manual contribution: debits the owner, advances the
// accumulated amount, and writes the ledger entry in one unit of work.
// Reaching the target completes the plan. Completed plans accept no
// further contributions; paused plans still do.
func (e *Engine) Contribute(ctx context.Context, ownerID, planID string, amount decimal.Decimal) (models.SavingsPlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.SavingsPlan{}, errs.New(errs.CodeValidation, "amount must be a positive number")
	}

	defer e.accounts.Lock(ownerID)()

	var updated models.SavingsPlan
	var entry models.LedgerEntry
	err := e.store.WithinUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		plan, err := uow.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if plan.OwnerID != ownerID {
			return errs.New(errs.CodeNotFound, "savings plan not found")
		}
		if plan.Status == models.PlanCompleted {
			return errs.New(errs.CodeInvalidStateTransition, "savings plan already completed")
		}

		owner, err := uow.GetAccount(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := owner.Debit(amount, plan.Currency); err != nil {
			return err
		}
		if err := uow.SaveAccount(ctx, owner); err != nil {
			return err
		}

		plan.CurrentAmount = plan.CurrentAmount.Add(amount)
		if plan.Completed() {
			plan.Status = models.PlanCompleted
		}
		if err := uow.SavePlan(ctx, plan); err != nil {
			return err
		}
		updated = plan

		entry = models.LedgerEntry{
			ID:          uuid.New().String(),
			AccountID:   ownerID,
			Amount:      amount,
			Currency:    plan.Currency,
			Kind:        models.EntryExpense,
			Description: fmt.Sprintf("Manual contribution to savings: %s", plan.Title),
			CreatedAt:   e.now(),
		}
		return uow.SaveEntry(ctx, entry)
	})
	if err != nil {
		return models.SavingsPlan{}, err
	}

	wallet.EmitLedgerRecorded(e.publisher, e.log, entry)
	return updated, nil
}

// ProcessDue advances every active, non-manual plan whose next
// contribution date has arrived. Each plan runs in its own unit of work.
// Insufficient funds pauses the plan without touching the balance; that is
// a recognized business outcome, not an error. Any other failure aborts
// only that plan's unit of work.
func (e *Engine) ProcessDue(ctx context.Context, now time.Time) {
	e.log.Info("starting savings plan processing")

	due, err := e.store.DuePlans(ctx, now)
	if err != nil {
		e.log.Error("select due savings plans", zap.Error(err))
		return
	}

	for _, candidate := range due {
		if err := e.contributeDue(ctx, candidate, now); err != nil {
			e.log.Error("process savings plan",
				zap.String("plan_id", candidate.ID),
				zap.String("title", candidate.Title),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) contributeDue(ctx context.Context, candidate models.SavingsPlan, now time.Time) error {
	// Same per-account serialization as a manual contribution, so the
	// sweep never races a request-driven debit on this owner.
	defer e.accounts.Lock(candidate.OwnerID)()

	var outcome models.SavingsPlan
	var entry *models.LedgerEntry

	err := e.store.WithinUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		plan, err := uow.GetPlan(ctx, candidate.ID)
		if err != nil {
			return err
		}
		// Re-check inside the unit of work so a concurrent sweep cannot
		// double-contribute.
		if !plan.DueFor(now) {
			return nil
		}

		owner, err := uow.GetAccount(ctx, plan.OwnerID)
		if err != nil {
			return err
		}
		if err := owner.Debit(plan.AmountPerFrequency, plan.Currency); err != nil {
			// Pause instead of failing so the owner can resume later.
			plan.Status = models.PlanPaused
			outcome = plan
			return uow.SavePlan(ctx, plan)
		}
		if err := uow.SaveAccount(ctx, owner); err != nil {
			return err
		}

		plan.CurrentAmount = plan.CurrentAmount.Add(plan.AmountPerFrequency)
		if plan.Completed() {
			plan.Status = models.PlanCompleted
		} else {
			// Advance from the previous scheduled date to avoid drift.
			plan.NextContributionDate = models.NextDate(plan.NextContributionDate, plan.Frequency)
		}
		if err := uow.SavePlan(ctx, plan); err != nil {
			return err
		}
		outcome = plan

		rec := models.LedgerEntry{
			ID:          uuid.New().String(),
			AccountID:   plan.OwnerID,
			Amount:      plan.AmountPerFrequency,
			Currency:    plan.Currency,
			Kind:        models.EntryExpense,
			Description: fmt.Sprintf("Automated contribution to savings: %s", plan.Title),
			CreatedAt:   now,
		}
		entry = &rec
		return uow.SaveEntry(ctx, rec)
	})
	if err != nil {
		return err
	}

	switch outcome.Status {
	case models.PlanPaused:
		e.log.Info("insufficient funds, paused savings plan",
			zap.String("plan_id", outcome.ID), zap.String("title", outcome.Title))
	case models.PlanActive, models.PlanCompleted:
		if entry != nil {
			e.log.Info("processed savings contribution",
				zap.String("plan_id", outcome.ID), zap.String("title", outcome.Title))
			wallet.EmitLedgerRecorded(e.publisher, e.log, *entry)
		}
	}
	return nil
}
