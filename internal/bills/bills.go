// Package bills implements the obligation engine: due, payable bills,
// settled manually by the owner or automatically by the scheduler.
package bills

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

// autoPayHorizon is how far ahead of the due date the scheduler settles
// auto-pay bills.
const autoPayHorizon = 24 * time.Hour

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

// Create declares a new bill to track. No funds move at creation.
func (e *Engine) Create(ctx context.Context, ownerID, title string, amount decimal.Decimal, currency models.Currency, category models.BillCategory, dueDate time.Time, autoPay bool) (models.Bill, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.Bill{}, errs.New(errs.CodeValidation, "amount must be a positive number")
	}
	if _, err := models.ParseCurrency(string(currency)); err != nil {
		return models.Bill{}, err
	}
	if title == "" {
		return models.Bill{}, errs.New(errs.CodeValidation, "title is required")
	}
	parsed, ok := models.ParseBillCategory(string(category))
	if !ok {
		return models.Bill{}, errs.Newf(errs.CodeValidation, "unknown bill category %q", category)
	}
	category = parsed

	bill := models.Bill{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		Amount:    amount,
		Currency:  currency,
		Category:  category,
		DueDate:   dueDate,
		AutoPay:   autoPay,
		Status:    models.BillPending,
		CreatedAt: e.now(),
	}
	if err := e.store.SaveBill(ctx, bill); err != nil {
		return models.Bill{}, err
	}
	return bill, nil
}

// ListByOwner lists the owner's bills ordered by due date.
func (e *Engine) ListByOwner(ctx context.Context, ownerID string) ([]models.Bill, error) {
	return e.store.ListBillsByOwner(ctx, ownerID)
}

// Pay settles a bill manually: debits the owner, marks the bill paid, and
// writes the ledger entry in one unit of work. Only pending bills are
// payable; paid and failed are terminal.
func (e *Engine) Pay(ctx context.Context, ownerID, billID string) (models.Bill, error) {
	defer e.accounts.Lock(ownerID)()

	var paid models.Bill
	var entry models.LedgerEntry
	err := e.store.WithinUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		bill, err := uow.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if bill.OwnerID != ownerID {
			return errs.New(errs.CodeNotFound, "bill not found")
		}
		if bill.Status == models.BillPaid {
			return errs.New(errs.CodeInvalidStateTransition, "bill already paid")
		}
		if bill.Status != models.BillPending {
			return errs.Newf(errs.CodeInvalidStateTransition, "bill is %s", bill.Status)
		}

		owner, err := uow.GetAccount(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := owner.Debit(bill.Amount, bill.Currency); err != nil {
			return err
		}
		if err := uow.SaveAccount(ctx, owner); err != nil {
			return err
		}

		now := e.now()
		bill.Status = models.BillPaid
		bill.PaidAt = &now
		if err := uow.SaveBill(ctx, bill); err != nil {
			return err
		}
		paid = bill

		entry = models.LedgerEntry{
			ID:          uuid.New().String(),
			AccountID:   ownerID,
			Amount:      bill.Amount,
			Currency:    bill.Currency,
			Kind:        models.EntryExpense,
			Description: fmt.Sprintf("Manual payment for bill: %s", bill.Title),
			CreatedAt:   now,
		}
		return uow.SaveEntry(ctx, entry)
	})
	if err != nil {
		return models.Bill{}, err
	}

	wallet.EmitLedgerRecorded(e.publisher, e.log, entry)
	return paid, nil
}

// ProcessAutoPay settles auto-pay bills due within the 24-hour horizon.
// Each bill runs in its own unit of work; insufficient funds marks the
// bill failed without touching the balance or writing an entry, and any
// other failure aborts only that bill's unit of work.
func (e *Engine) ProcessAutoPay(ctx context.Context, now time.Time) {
	e.log.Info("starting bill processing")
	cutoff := now.Add(autoPayHorizon)

	due, err := e.store.DueAutoPayBills(ctx, cutoff)
	if err != nil {
		e.log.Error("select due bills", zap.Error(err))
		return
	}

	for _, candidate := range due {
		if err := e.autoPayOne(ctx, candidate, cutoff, now); err != nil {
			e.log.Error("process bill",
				zap.String("bill_id", candidate.ID),
				zap.String("title", candidate.Title),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) autoPayOne(ctx context.Context, candidate models.Bill, cutoff, now time.Time) error {
	// Same per-account serialization as a manual payment, so the sweep
	// never races a request-driven debit on this owner.
	defer e.accounts.Lock(candidate.OwnerID)()

	var settled models.Bill
	var entry *models.LedgerEntry

	err := e.store.WithinUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		bill, err := uow.GetBill(ctx, candidate.ID)
		if err != nil {
			return err
		}
		// Re-check inside the unit of work so a concurrent sweep or a
		// manual payment cannot double-apply.
		if !bill.AutoPayable(cutoff) {
			return nil
		}

		owner, err := uow.GetAccount(ctx, bill.OwnerID)
		if err != nil {
			return err
		}
		if err := owner.Debit(bill.Amount, bill.Currency); err != nil {
			// Insufficient funds is the terminal automatic outcome, not
			// an item failure: commit the failed status on its own.
			bill.Status = models.BillFailed
			settled = bill
			return uow.SaveBill(ctx, bill)
		}
		if err := uow.SaveAccount(ctx, owner); err != nil {
			return err
		}

		bill.Status = models.BillPaid
		bill.PaidAt = &now
		if err := uow.SaveBill(ctx, bill); err != nil {
			return err
		}
		settled = bill

		rec := models.LedgerEntry{
			ID:          uuid.New().String(),
			AccountID:   bill.OwnerID,
			Amount:      bill.Amount,
			Currency:    bill.Currency,
			Kind:        models.EntryExpense,
			Description: fmt.Sprintf("Automated payment for bill: %s", bill.Title),
			CreatedAt:   now,
		}
		entry = &rec
		return uow.SaveEntry(ctx, rec)
	})
	if err != nil {
		return err
	}

	switch settled.Status {
	case models.BillPaid:
		e.log.Info("paid bill automatically", zap.String("bill_id", settled.ID), zap.String("title", settled.Title))
		if entry != nil {
			wallet.EmitLedgerRecorded(e.publisher, e.log, *entry)
		}
	case models.BillFailed:
		e.log.Info("insufficient funds for bill", zap.String("bill_id", settled.ID), zap.String("title", settled.Title))
	}
	return nil
}
