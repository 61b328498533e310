package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/olumayowa/walletcore/internal/errs"
)

// Account holds the two independent wallet balances for one identity.
// Balances move only through the engines or the labeled administrative
// override; no engine operation may drive a balance negative.
type Account struct {
	OwnerID       string
	Username      string // guardian lookup key
	NairaBalance  decimal.Decimal
	DollarBalance decimal.Decimal
	CreatedAt     time.Time
}

// Balance returns the balance for the given currency.
func (a Account) Balance(c Currency) decimal.Decimal {
	if c == USD {
		return a.DollarBalance
	}
	return a.NairaBalance
}

func (a *Account) setBalance(c Currency, v decimal.Decimal) {
	if c == USD {
		a.DollarBalance = v
	} else {
		a.NairaBalance = v
	}
}

// Debit subtracts amount from the balance of the given currency. It fails
// with INSUFFICIENT_FUNDS and leaves the balance unchanged if the balance
// is below amount.
func (a *Account) Debit(amount decimal.Decimal, c Currency) error {
	bal := a.Balance(c)
	if bal.LessThan(amount) {
		return errs.Newf(errs.CodeInsufficientFunds, "insufficient %s balance", c)
	}
	a.setBalance(c, bal.Sub(amount))
	return nil
}

// Credit adds amount to the balance of the given currency. It always succeeds.
func (a *Account) Credit(amount decimal.Decimal, c Currency) {
	a.setBalance(c, a.Balance(c).Add(amount))
}

// Override unconditionally overwrites both balances. This is the
// administrative escape hatch: no ledger entry, no validation beyond the
// numeric type, and it must stay distinct from the ledger path.
func (a *Account) Override(naira, dollar decimal.Decimal) {
	a.NairaBalance = naira
	a.DollarBalance = dollar
}
