// Package memory is the in-memory WalletStore used by tests and by the
// server when no database is configured. Units of work are serialized
// under one store lock and buffer their writes until commit, so a failed
// operation leaves no partial state behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/olumayowa/walletcore/internal/errs"
	"github.com/olumayowa/walletcore/internal/interfaces"
	"github.com/olumayowa/walletcore/internal/models"
)

type MemoryWalletStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	entries  []models.LedgerEntry
	locks    map[string]models.Lock
	bills    map[string]models.Bill
	plans    map[string]models.SavingsPlan
}

func NewMemoryWalletStore() *MemoryWalletStore {
	return &MemoryWalletStore{
		accounts: make(map[string]models.Account),
		locks:    make(map[string]models.Lock),
		bills:    make(map[string]models.Bill),
		plans:    make(map[string]models.SavingsPlan),
	}
}

// unitOfWork buffers writes against the base maps. Reads see the staged
// state first. The store lock is held for the whole unit of work, which
// gives in-memory units of work serializable isolation.
type unitOfWork struct {
	store   *MemoryWalletStore
	account map[string]models.Account
	entries []models.LedgerEntry
	lock    map[string]models.Lock
	bill    map[string]models.Bill
	plan    map[string]models.SavingsPlan
}

func (s *MemoryWalletStore) WithinUnitOfWork(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uow := &unitOfWork{
		store:   s,
		account: make(map[string]models.Account),
		lock:    make(map[string]models.Lock),
		bill:    make(map[string]models.Bill),
		plan:    make(map[string]models.SavingsPlan),
	}
	if err := fn(uow); err != nil {
		return err
	}

	// Commit: apply staged writes to the base maps.
	for id, a := range uow.account {
		s.accounts[id] = a
	}
	for id, l := range uow.lock {
		s.locks[id] = l
	}
	for id, b := range uow.bill {
		s.bills[id] = b
	}
	for id, p := range uow.plan {
		s.plans[id] = p
	}
	s.entries = append(s.entries, uow.entries...)
	return nil
}

func (u *unitOfWork) GetAccount(ctx context.Context, ownerID string) (models.Account, error) {
	if a, ok := u.account[ownerID]; ok {
		return a, nil
	}
	return u.store.getAccountLocked(ownerID)
}

func (u *unitOfWork) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	for _, a := range u.account {
		if a.Username == username {
			return a, nil
		}
	}
	return u.store.getAccountByUsernameLocked(username)
}

func (u *unitOfWork) SaveAccount(ctx context.Context, account models.Account) error {
	u.account[account.OwnerID] = account
	return nil
}

func (u *unitOfWork) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	u.entries = append(u.entries, entry)
	return nil
}

func (u *unitOfWork) GetLock(ctx context.Context, id string) (models.Lock, error) {
	if l, ok := u.lock[id]; ok {
		return l, nil
	}
	if l, ok := u.store.locks[id]; ok {
		return l, nil
	}
	return models.Lock{}, errs.New(errs.CodeNotFound, "lock not found")
}

func (u *unitOfWork) SaveLock(ctx context.Context, lock models.Lock) error {
	u.lock[lock.ID] = lock
	return nil
}

func (u *unitOfWork) GetBill(ctx context.Context, id string) (models.Bill, error) {
	if b, ok := u.bill[id]; ok {
		return b, nil
	}
	if b, ok := u.store.bills[id]; ok {
		return b, nil
	}
	return models.Bill{}, errs.New(errs.CodeNotFound, "bill not found")
}

func (u *unitOfWork) SaveBill(ctx context.Context, bill models.Bill) error {
	u.bill[bill.ID] = bill
	return nil
}

func (u *unitOfWork) GetPlan(ctx context.Context, id string) (models.SavingsPlan, error) {
	if p, ok := u.plan[id]; ok {
		return p, nil
	}
	if p, ok := u.store.plans[id]; ok {
		return p, nil
	}
	return models.SavingsPlan{}, errs.New(errs.CodeNotFound, "savings plan not found")
}

func (u *unitOfWork) SavePlan(ctx context.Context, plan models.SavingsPlan) error {
	u.plan[plan.ID] = plan
	return nil
}

// ---------------------------------------------------------------------------
// Direct (non-transactional) access
// ---------------------------------------------------------------------------

func (s *MemoryWalletStore) getAccountLocked(ownerID string) (models.Account, error) {
	if a, ok := s.accounts[ownerID]; ok {
		return a, nil
	}
	return models.Account{}, errs.New(errs.CodeNotFound, "account not found")
}

func (s *MemoryWalletStore) getAccountByUsernameLocked(username string) (models.Account, error) {
	for _, a := range s.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return models.Account{}, errs.New(errs.CodeNotFound, "account not found")
}

func (s *MemoryWalletStore) GetAccount(ctx context.Context, ownerID string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccountLocked(ownerID)
}

func (s *MemoryWalletStore) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccountByUsernameLocked(username)
}

func (s *MemoryWalletStore) SaveAccount(ctx context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.OwnerID] = account
	return nil
}

func (s *MemoryWalletStore) DeleteAccount(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[ownerID]; !ok {
		return errs.New(errs.CodeNotFound, "account not found")
	}
	delete(s.accounts, ownerID)

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.AccountID != ownerID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func (s *MemoryWalletStore) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryWalletStore) GetLock(ctx context.Context, id string) (models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[id]; ok {
		return l, nil
	}
	return models.Lock{}, errs.New(errs.CodeNotFound, "lock not found")
}

func (s *MemoryWalletStore) SaveLock(ctx context.Context, lock models.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lock.ID] = lock
	return nil
}

func (s *MemoryWalletStore) GetBill(ctx context.Context, id string) (models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bills[id]; ok {
		return b, nil
	}
	return models.Bill{}, errs.New(errs.CodeNotFound, "bill not found")
}

func (s *MemoryWalletStore) SaveBill(ctx context.Context, bill models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[bill.ID] = bill
	return nil
}

func (s *MemoryWalletStore) GetPlan(ctx context.Context, id string) (models.SavingsPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.plans[id]; ok {
		return p, nil
	}
	return models.SavingsPlan{}, errs.New(errs.CodeNotFound, "savings plan not found")
}

func (s *MemoryWalletStore) SavePlan(ctx context.Context, plan models.SavingsPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
	return nil
}

func (s *MemoryWalletStore) ListEntriesByAccount(ctx context.Context, ownerID string) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range s.entries {
		if e.AccountID == ownerID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryWalletStore) ListLocksByOwner(ctx context.Context, ownerID string) ([]models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Lock
	for _, l := range s.locks {
		if l.OwnerID == ownerID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *MemoryWalletStore) ListUnlockRequests(ctx context.Context, guardianID string) ([]models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Lock
	for _, l := range s.locks {
		if l.GuardianID == guardianID && l.Status == models.LockUnlockRequested {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *MemoryWalletStore) ListBillsByOwner(ctx context.Context, ownerID string) ([]models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Bill
	for _, b := range s.bills {
		if b.OwnerID == ownerID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}

func (s *MemoryWalletStore) ListPlansByOwner(ctx context.Context, ownerID string) ([]models.SavingsPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.SavingsPlan
	for _, p := range s.plans {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *MemoryWalletStore) DuePlans(ctx context.Context, now time.Time) ([]models.SavingsPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.SavingsPlan
	for _, p := range s.plans {
		if p.DueFor(now) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NextContributionDate.Before(result[j].NextContributionDate)
	})
	return result, nil
}

func (s *MemoryWalletStore) DueAutoPayBills(ctx context.Context, cutoff time.Time) ([]models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Bill
	for _, b := range s.bills {
		if b.AutoPayable(cutoff) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}

func (s *MemoryWalletStore) MarkMatureLocksAvailable(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped int64
	for id, l := range s.locks {
		if l.Mature(now) {
			l.Status = models.LockAvailable
			s.locks[id] = l
			flipped++
		}
	}
	return flipped, nil
}

// Compile-time check: MemoryWalletStore implements WalletStore.
var _ interfaces.WalletStore = (*MemoryWalletStore)(nil)
