// Package escrow implements the safety-lock engine: guardian-supervised
// holds that move funds out of the owner's balance until release
// conditions are met.
package escrow

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

// Create commits funds into a new lock: debits the owner, stores the lock
// as active, and writes the ledger entry, all in one unit of work. The
// guardian is resolved by username and may not be the owner.
func (e *Engine) Create(ctx context.Context, ownerID, guardianUsername string, amount decimal.Decimal, currency models.Currency, purpose string, dueDate time.Time) (models.Lock, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.Lock{}, errs.New(errs.CodeValidation, "amount must be a positive number")
	}
	if _, err := models.ParseCurrency(string(currency)); err != nil {
		return models.Lock{}, err
	}
	if purpose == "" {
		return models.Lock{}, errs.New(errs.CodeValidation, "purpose is required")
	}

	defer e.accounts.Lock(ownerID)()

	var lock models.Lock
	var entry models.LedgerEntry
	err := e.store.WithinUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		owner, err := uow.GetAccount(ctx, ownerID)
		if err != nil {
			return err
		}
		guardian, err := uow.GetAccountByUsername(ctx, guardianUsername)
		if err != nil {
			return errs.New(errs.CodeNotFound, "guardian not found")
		}
		if guardian.OwnerID == owner.OwnerID {
			return errs.New(errs.CodeValidation, "you cannot be your own guardian")
		}
		if err := owner.Debit(amount, currency); err != nil {
			return err
		}
		if err := uow.SaveAccount(ctx, owner); err != nil {
			return err
		}

		lock = models.Lock{
			ID:         uuid.New().String(),
			OwnerID:    owner.OwnerID,
			GuardianID: guardian.OwnerID,
			Amount:     amount,
			Currency:   currency,
			Purpose:    purpose,
			DueDate:    dueDate,
			Status:     models.LockActive,
			CreatedAt:  e.now(),
		}
		if err := uow.SaveLock(ctx, lock); err != nil {
			return err
		}

		entry = models.LedgerEntry{
			ID:          uuid.New().String(),
			AccountID:   owner.OwnerID,
			Amount:      amount,
			Currency:    currency,
			Kind:        models.EntryExpense,
			Description: fmt.Sprintf("Safety Lock created: %s", purpose),
			CreatedAt:   e.now(),
		}
		return uow.SaveEntry(ctx, entry)
	})
	if err != nil {
		return models.Lock{}, err
	}

	wallet.EmitLedgerRecorded(e.publisher, e.log, entry)
	return lock, nil
}

// RequestUnlock moves an active lock to unlock_requested. Owner only.
func (e *Engine) RequestUnlock(ctx context.Context, ownerID, lockID string) (models.Lock, error) {
	lock, err := e.ownedLock(ctx, ownerID, lockID)
	if err != nil {
		return models.Lock{}, err
	}
	if lock.Status != models.LockActive {
		return models.Lock{}, errs.New(errs.CodeInvalidStateTransition, "lock is not active")
	}
	lock.Status = models.LockUnlockRequested
	if err := e.store.SaveLock(ctx, lock); err != nil {
		return models.Lock{}, err
	}
	return lock, nil
}

// Resolve lets the designated guardian settle an unlock request: approve
// moves the lock to available, reject returns it to active. No funds move
// in either direction; release stays a separate owner-triggered step.
func (e *Engine) Resolve(ctx context.Context, guardianID, lockID string, approve bool) (models.Lock, error) {
	lock, err := e.store.GetLock(ctx, lockID)
	if err != nil {
		return models.Lock{}, err
	}
	if lock.GuardianID != guardianID {
		return models.Lock{}, errs.New(errs.CodeUnauthorized, "only the designated guardian may resolve an unlock request")
	}
	if lock.Status != models.LockUnlockRequested {
		return models.Lock{}, errs.New(errs.CodeInvalidStateTransition, "lock has no pending unlock request")
	}
	if approve {
		lock.Status = models.LockAvailable
	} else {
		lock.Status = models.LockActive
	}
	if err := e.store.SaveLock(ctx, lock); err != nil {
		return models.Lock{}, err
	}
	return lock, nil
}

// Release returns the locked funds to the owner's balance. Reachable from
// available, or from active once the due date has passed. released is
// terminal. The credit carries no ledger entry; the create-time expense
// entry alone records the lock in the history.
func (e *Engine) Release(ctx context.Context, ownerID, lockID string) (models.Lock, error) {
	defer e.accounts.Lock(ownerID)()

	var released models.Lock
	err := e.store.WithinUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		lock, err := uow.GetLock(ctx, lockID)
		if err != nil {
			return err
		}
		if lock.OwnerID != ownerID {
			return errs.New(errs.CodeNotFound, "lock not found")
		}
		if lock.Status == models.LockReleased {
			return errs.New(errs.CodeInvalidStateTransition, "lock already released")
		}
		if !lock.Releasable(e.now()) {
			return errs.New(errs.CodeInvalidStateTransition, "lock is not available for release yet")
		}

		owner, err := uow.GetAccount(ctx, lock.OwnerID)
		if err != nil {
			return err
		}
		owner.Credit(lock.Amount, lock.Currency)
		if err := uow.SaveAccount(ctx, owner); err != nil {
			return err
		}

		lock.Status = models.LockReleased
		released = lock
		return uow.SaveLock(ctx, lock)
	})
	if err != nil {
		return models.Lock{}, err
	}
	return released, nil
}

// MatureLocks bulk-flips active locks past their due date to available.
// Eligibility only; no funds move, so no per-item unit of work is needed.
func (e *Engine) MatureLocks(ctx context.Context, now time.Time) (int64, error) {
	flipped, err := e.store.MarkMatureLocksAvailable(ctx, now)
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		e.log.Info("matured locks", zap.Int64("count", flipped))
	}
	return flipped, nil
}

// ListByOwner lists the owner's locks.
func (e *Engine) ListByOwner(ctx context.Context, ownerID string) ([]models.Lock, error) {
	return e.store.ListLocksByOwner(ctx, ownerID)
}

// ListUnlockRequests lists pending unlock requests awaiting the guardian.
func (e *Engine) ListUnlockRequests(ctx context.Context, guardianID string) ([]models.Lock, error) {
	return e.store.ListUnlockRequests(ctx, guardianID)
}

func (e *Engine) ownedLock(ctx context.Context, ownerID, lockID string) (models.Lock, error) {
	lock, err := e.store.GetLock(ctx, lockID)
	if err != nil {
		return models.Lock{}, err
	}
	if lock.OwnerID != ownerID {
		return models.Lock{}, errs.New(errs.CodeNotFound, "lock not found")
	}
	return lock, nil
}
