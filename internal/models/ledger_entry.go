package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/olumayowa/walletcore/internal/errs"
)

// EntryKind marks the direction of a ledger movement.
type EntryKind string

const (
	EntryIncome  EntryKind = "income"
	EntryExpense EntryKind = "expense"
)

// ParseEntryKind validates a raw entry kind.
func ParseEntryKind(raw string) (EntryKind, error) {
	switch EntryKind(raw) {
	case EntryIncome:
		return EntryIncome, nil
	case EntryExpense:
		return EntryExpense, nil
	default:
		return "", errs.Newf(errs.CodeValidation, "kind must be income or expense, got %q", raw)
	}
}

// LedgerEntry is the immutable record of one balance-affecting event.
// Amount is always positive; Kind carries the direction. Entries are
// created, never mutated, and deleted only by full account deletion.
type LedgerEntry struct {
	ID          string
	AccountID   string
	Amount      decimal.Decimal
	Currency    Currency
	Kind        EntryKind
	Description string
	CreatedAt   time.Time
}

// Delta returns the signed effect of the entry on a balance.
func (e LedgerEntry) Delta() decimal.Decimal {
	if e.Kind == EntryExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}
