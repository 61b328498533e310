package bills

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumayowa/walletcore/internal/errs"
	"github.com/olumayowa/walletcore/internal/models"
	"github.com/olumayowa/walletcore/internal/storage/memory"
	"github.com/olumayowa/walletcore/internal/wallet"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *memory.MemoryWalletStore) {
	t.Helper()

	store := memory.NewMemoryWalletStore()
	engine := NewEngine(store, wallet.NewAccountLocks(), nil, nil)
	engine.SetClock(func() time.Time { return testNow })
	return engine, store
}

func seed(t *testing.T, store *memory.MemoryWalletStore, ownerID string, naira int64) {
	t.Helper()
	require.NoError(t, store.SaveAccount(context.Background(), models.Account{
		OwnerID:      ownerID,
		Username:     ownerID + "-name",
		NairaBalance: decimal.NewFromInt(naira),
	}))
}

func nairaBalance(t *testing.T, store *memory.MemoryWalletStore, ownerID string) decimal.Decimal {
	t.Helper()
	a, err := store.GetAccount(context.Background(), ownerID)
	require.NoError(t, err)
	return a.NairaBalance
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)

	_, err := engine.Create(ctx, "owner", "rent", decimal.Zero, models.NGN, models.BillRent, testNow, false)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))

	_, err = engine.Create(ctx, "owner", "", decimal.NewFromInt(100), models.NGN, models.BillRent, testNow, false)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))

	_, err = engine.Create(ctx, "owner", "rent", decimal.NewFromInt(100), models.Currency("EUR"), models.BillRent, testNow, false)
	assert.True(t, errs.IsCode(err, errs.CodeValidation), "currency outside the enum is rejected")

	_, err = engine.Create(ctx, "owner", "rent", decimal.NewFromInt(100), models.NGN, models.BillCategory("groceries"), testNow, false)
	assert.True(t, errs.IsCode(err, errs.CodeValidation), "category outside the enum is rejected")

	bill, err := engine.Create(ctx, "owner", "rent", decimal.NewFromInt(100), models.NGN, "", testNow, false)
	require.NoError(t, err)
	assert.Equal(t, models.BillUtility, bill.Category)
	assert.Equal(t, models.BillPending, bill.Status)

	stored, err := store.ListBillsByOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, stored, 1, "rejected bills are never persisted")
}

func TestManualPay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	bill, err := engine.Create(ctx, "owner", "electricity", decimal.NewFromInt(300), models.NGN, models.BillUtility, testNow.Add(48*time.Hour), false)
	require.NoError(t, err)

	paid, err := engine.Pay(ctx, "owner", bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, testNow, *paid.PaidAt)
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(700)))

	entries, err := store.ListEntriesByAccount(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Manual payment for bill: electricity", entries[0].Description)

	_, err = engine.Pay(ctx, "owner", bill.ID)
	assert.True(t, errs.IsCode(err, errs.CodeInvalidStateTransition), "paying twice is rejected")
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(700)))
}

func TestManualPayErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 100)
	seed(t, store, "stranger", 1000)

	bill, err := engine.Create(ctx, "owner", "rent", decimal.NewFromInt(500), models.NGN, models.BillRent, testNow, false)
	require.NoError(t, err)

	_, err = engine.Pay(ctx, "owner", "missing")
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))

	_, err = engine.Pay(ctx, "stranger", bill.ID)
	assert.True(t, errs.IsCode(err, errs.CodeNotFound), "bills are only visible to their owner")

	_, err = engine.Pay(ctx, "owner", bill.ID)
	assert.True(t, errs.IsCode(err, errs.CodeInsufficientFunds))
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(100)), "failed payment moves no funds")

	unchanged, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPending, unchanged.Status, "manual insufficiency is surfaced, not a terminal failure")
}

// Bill(500 NGN, auto-pay, due tomorrow) against a 300 NGN balance: the
// sweep marks it failed, the balance stays put, and no entry is written.
func TestAutoPayInsufficientFunds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 300)

	bill, err := engine.Create(ctx, "owner", "data bundle", decimal.NewFromInt(500), models.NGN, models.BillInternet, testNow.Add(24*time.Hour), true)
	require.NoError(t, err)

	engine.ProcessAutoPay(ctx, testNow)

	failed, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillFailed, failed.Status)
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(300)))

	entries, err := store.ListEntriesByAccount(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAutoPaySuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	bill, err := engine.Create(ctx, "owner", "data bundle", decimal.NewFromInt(500), models.NGN, models.BillInternet, testNow.Add(12*time.Hour), true)
	require.NoError(t, err)

	engine.ProcessAutoPay(ctx, testNow)

	paid, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(500)))

	entries, err := store.ListEntriesByAccount(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Automated payment for bill: data bundle", entries[0].Description)
}

func TestAutoPayIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	_, err := engine.Create(ctx, "owner", "data bundle", decimal.NewFromInt(500), models.NGN, models.BillInternet, testNow.Add(12*time.Hour), true)
	require.NoError(t, err)

	engine.ProcessAutoPay(ctx, testNow)
	engine.ProcessAutoPay(ctx, testNow)

	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(500)), "second sweep touches nothing")

	entries, err := store.ListEntriesByAccount(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAutoPaySkipsBillsOutsideHorizon(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	bill, err := engine.Create(ctx, "owner", "rent", decimal.NewFromInt(500), models.NGN, models.BillRent, testNow.Add(72*time.Hour), true)
	require.NoError(t, err)

	engine.ProcessAutoPay(ctx, testNow)

	pending, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPending, pending.Status)
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(1000)))
}

// The sweep serializes on the same per-account registry as manual
// payments: while the owner's mutex is held, the bill stays untouched.
func TestAutoPayWaitsForAccountLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewMemoryWalletStore()
	accounts := wallet.NewAccountLocks()
	engine := NewEngine(store, accounts, nil, nil)
	engine.SetClock(func() time.Time { return testNow })
	seed(t, store, "owner", 1000)

	bill, err := engine.Create(ctx, "owner", "data bundle", decimal.NewFromInt(500), models.NGN, models.BillInternet, testNow.Add(12*time.Hour), true)
	require.NoError(t, err)

	unlock := accounts.Lock("owner")

	done := make(chan struct{})
	go func() {
		engine.ProcessAutoPay(ctx, testNow)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("sweep ran while the owner's account was locked")
	case <-time.After(50 * time.Millisecond):
	}

	pending, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPending, pending.Status)

	unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not resume after the account lock was released")
	}

	paid, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, paid.Status)
}

// One bill referencing a missing account must not block the rest of the
// pass.
func TestAutoPayIsolatesItemFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	_, err := engine.Create(ctx, "ghost", "orphan", decimal.NewFromInt(100), models.NGN, models.BillOther, testNow, true)
	require.NoError(t, err)
	healthy, err := engine.Create(ctx, "owner", "data bundle", decimal.NewFromInt(500), models.NGN, models.BillInternet, testNow, true)
	require.NoError(t, err)

	engine.ProcessAutoPay(ctx, testNow)

	paid, err := store.GetBill(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, paid.Status)
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(500)))
}
