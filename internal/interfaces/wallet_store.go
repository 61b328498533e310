package interfaces

import (
	"context"
	"time"

	"github.com/olumayowa/walletcore/internal/models"
)

// UnitOfWork is the transactional view of the store. Every money-moving
// operation reads and writes through one UnitOfWork so the balance delta,
// the domain-entity mutation, and the ledger entry commit or abort as a
// whole.
type UnitOfWork interface {
	GetAccount(ctx context.Context, ownerID string) (models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (models.Account, error)
	SaveAccount(ctx context.Context, account models.Account) error

	SaveEntry(ctx context.Context, entry models.LedgerEntry) error

	GetLock(ctx context.Context, id string) (models.Lock, error)
	SaveLock(ctx context.Context, lock models.Lock) error

	GetBill(ctx context.Context, id string) (models.Bill, error)
	SaveBill(ctx context.Context, bill models.Bill) error

	GetPlan(ctx context.Context, id string) (models.SavingsPlan, error)
	SavePlan(ctx context.Context, plan models.SavingsPlan) error
}

// WalletStore persists the wallet entities. Reads outside a unit of work
// are snapshot queries used for listings and scheduler selection; each
// selected item is then re-checked and mutated inside its own unit of work.
type WalletStore interface {
	UnitOfWork

	// WithinUnitOfWork runs fn inside one atomic unit of work. If fn
	// returns an error every staged mutation is rolled back and the error
	// is returned unchanged.
	WithinUnitOfWork(ctx context.Context, fn func(uow UnitOfWork) error) error

	DeleteAccount(ctx context.Context, ownerID string) error

	ListEntriesByAccount(ctx context.Context, ownerID string) ([]models.LedgerEntry, error)
	ListLocksByOwner(ctx context.Context, ownerID string) ([]models.Lock, error)
	ListUnlockRequests(ctx context.Context, guardianID string) ([]models.Lock, error)
	ListBillsByOwner(ctx context.Context, ownerID string) ([]models.Bill, error)
	ListPlansByOwner(ctx context.Context, ownerID string) ([]models.SavingsPlan, error)

	// Scheduler selection queries.
	DuePlans(ctx context.Context, now time.Time) ([]models.SavingsPlan, error)
	DueAutoPayBills(ctx context.Context, cutoff time.Time) ([]models.Bill, error)

	// MarkMatureLocksAvailable bulk-flips active locks whose due date has
	// passed to available. No fund movement, so no unit of work is needed.
	MarkMatureLocksAvailable(ctx context.Context, now time.Time) (int64, error)
}
