package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LockStatus is the state of an escrow lock.
type LockStatus string

const (
	LockActive          LockStatus = "active"
	LockUnlockRequested LockStatus = "unlock_requested"
	LockAvailable       LockStatus = "available"
	LockReleased        LockStatus = "released"
	// LockRejected is declared but reserved: no transition produces it.
	LockRejected LockStatus = "rejected"
)

// Lock holds funds unavailable to the owner, supervised by a guardian,
// until release conditions are met.
type Lock struct {
	ID         string
	OwnerID    string
	GuardianID string
	Amount     decimal.Decimal
	Currency   Currency
	Purpose    string
	DueDate    time.Time
	Status     LockStatus
	CreatedAt  time.Time
}

// Releasable reports whether the owner may release the lock: either the
// guardian made it available, or the due date has passed while active.
func (l Lock) Releasable(now time.Time) bool {
	if l.Status == LockAvailable {
		return true
	}
	return l.Status == LockActive && !now.Before(l.DueDate)
}

// Mature reports whether the scheduler should flip the lock to available.
func (l Lock) Mature(now time.Time) bool {
	return l.Status == LockActive && !l.DueDate.After(now)
}
