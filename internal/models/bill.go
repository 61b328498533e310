package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus is the state of an obligation. paid and failed are terminal.
type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
	BillFailed  BillStatus = "failed"
)

// BillCategory classifies a bill for display purposes.
type BillCategory string

const (
	BillUtility      BillCategory = "utility"
	BillMobile       BillCategory = "mobile"
	BillInternet     BillCategory = "internet"
	BillRent         BillCategory = "rent"
	BillSubscription BillCategory = "subscription"
	BillOther        BillCategory = "other"
)

// ParseBillCategory validates a raw category, defaulting empty to utility.
func ParseBillCategory(raw string) (BillCategory, bool) {
	if raw == "" {
		return BillUtility, true
	}
	switch c := BillCategory(raw); c {
	case BillUtility, BillMobile, BillInternet, BillRent, BillSubscription, BillOther:
		return c, true
	default:
		return "", false
	}
}

// Bill is a scheduled, possibly-automatic payment due by a date.
type Bill struct {
	ID        string
	OwnerID   string
	Title     string
	Amount    decimal.Decimal
	Currency  Currency
	Category  BillCategory
	DueDate   time.Time
	AutoPay   bool
	Status    BillStatus
	PaidAt    *time.Time
	CreatedAt time.Time
}

// AutoPayable reports whether the scheduler should attempt the bill:
// pending, opted into auto-pay, and due within the given horizon.
func (b Bill) AutoPayable(cutoff time.Time) bool {
	return b.Status == BillPending && b.AutoPay && !b.DueDate.After(cutoff)
}
