package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumayowa/walletcore/internal/errs"
)

func TestDebitInsufficientFundsLeavesBalanceUnchanged(t *testing.T) {
	t.Parallel()

	a := Account{NairaBalance: decimal.NewFromInt(100)}
	err := a.Debit(decimal.NewFromInt(150), NGN)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInsufficientFunds))
	assert.True(t, a.NairaBalance.Equal(decimal.NewFromInt(100)))
}

func TestDebitAndCreditPerCurrency(t *testing.T) {
	t.Parallel()

	a := Account{
		NairaBalance:  decimal.NewFromInt(1000),
		DollarBalance: decimal.NewFromInt(50),
	}

	require.NoError(t, a.Debit(decimal.NewFromInt(400), NGN))
	assert.True(t, a.NairaBalance.Equal(decimal.NewFromInt(600)))
	assert.True(t, a.DollarBalance.Equal(decimal.NewFromInt(50)))

	a.Credit(decimal.NewFromInt(25), USD)
	assert.True(t, a.DollarBalance.Equal(decimal.NewFromInt(75)))
	assert.True(t, a.NairaBalance.Equal(decimal.NewFromInt(600)))
}

func TestDebitExactBalanceSucceeds(t *testing.T) {
	t.Parallel()

	a := Account{DollarBalance: decimal.NewFromInt(75)}
	require.NoError(t, a.Debit(decimal.NewFromInt(75), USD))
	assert.True(t, a.DollarBalance.IsZero())
}

func TestOverrideReplacesBothBalances(t *testing.T) {
	t.Parallel()

	a := Account{NairaBalance: decimal.NewFromInt(10), DollarBalance: decimal.NewFromInt(20)}
	a.Override(decimal.NewFromInt(5000), decimal.NewFromInt(-3))
	assert.True(t, a.NairaBalance.Equal(decimal.NewFromInt(5000)))
	// The override is unchecked on purpose.
	assert.True(t, a.DollarBalance.Equal(decimal.NewFromInt(-3)))
}

func TestParseCurrency(t *testing.T) {
	t.Parallel()

	c, err := ParseCurrency("NGN")
	require.NoError(t, err)
	assert.Equal(t, NGN, c)

	_, err = ParseCurrency("EUR")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))
}

func TestParseEntryKind(t *testing.T) {
	t.Parallel()

	k, err := ParseEntryKind("income")
	require.NoError(t, err)
	assert.Equal(t, EntryIncome, k)

	_, err = ParseEntryKind("transfer")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))
}

func TestEntryDelta(t *testing.T) {
	t.Parallel()

	in := LedgerEntry{Amount: decimal.NewFromInt(40), Kind: EntryIncome}
	out := LedgerEntry{Amount: decimal.NewFromInt(40), Kind: EntryExpense}
	assert.True(t, in.Delta().Equal(decimal.NewFromInt(40)))
	assert.True(t, out.Delta().Equal(decimal.NewFromInt(-40)))
}
