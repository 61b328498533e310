package wallet

import "sync"

// AccountLocks serializes application-level mutations per account. The
// storage engine's transaction isolation is the hard safety net; this
// registry prevents two concurrent debits against the same account from
// ever racing at the application layer. One registry is shared by the
// request-driven engines and the scheduler.
type AccountLocks struct {
	mapMu sync.Mutex
	muMap map[string]*sync.Mutex
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{muMap: make(map[string]*sync.Mutex)}
}

func (l *AccountLocks) get(ownerID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[ownerID]; !exists {
		l.muMap[ownerID] = &sync.Mutex{}
	}
	return l.muMap[ownerID]
}

// Lock acquires the mutex for ownerID and returns the unlock function.
func (l *AccountLocks) Lock(ownerID string) func() {
	mu := l.get(ownerID)
	mu.Lock()
	return mu.Unlock
}
