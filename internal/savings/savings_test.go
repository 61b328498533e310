package savings

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
	engine, _ := newTestEngine(t)

	_, err := engine.Create(ctx, "owner", "bike", decimal.Zero, models.NGN, models.FrequencyWeekly, decimal.NewFromInt(200), testNow)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))

	_, err = engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyWeekly, decimal.Zero, testNow)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))

	_, err = engine.Create(ctx, "owner", "", decimal.NewFromInt(1000), models.NGN, models.FrequencyWeekly, decimal.NewFromInt(200), testNow)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))

	_, err = engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.Currency("EUR"), models.FrequencyWeekly, decimal.NewFromInt(200), testNow)
	assert.True(t, errs.IsCode(err, errs.CodeValidation), "currency outside the enum is rejected")

	_, err = engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.Frequency("yearly"), decimal.NewFromInt(200), testNow)
	assert.True(t, errs.IsCode(err, errs.CodeValidation), "frequency outside the enum is rejected")

	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyWeekly, decimal.NewFromInt(200), testNow)
	require.NoError(t, err)
	assert.Equal(t, models.PlanActive, plan.Status)
	assert.True(t, plan.CurrentAmount.IsZero())
}

func TestManualContribute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyManual, decimal.NewFromInt(200), testNow)
	require.NoError(t, err)

	updated, err := engine.Contribute(ctx, "owner", plan.ID, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, models.PlanActive, updated.Status)
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(700)))

	entries, err := store.ListEntriesByAccount(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Manual contribution to savings: bike", entries[0].Description)
}

func TestManualContributeErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 100)
	seed(t, store, "stranger", 1000)

	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyManual, decimal.NewFromInt(200), testNow)
	require.NoError(t, err)

	_, err = engine.Contribute(ctx, "owner", plan.ID, decimal.Zero)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))

	_, err = engine.Contribute(ctx, "owner", "missing", decimal.NewFromInt(50))
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))

	_, err = engine.Contribute(ctx, "stranger", plan.ID, decimal.NewFromInt(50))
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))

	_, err = engine.Contribute(ctx, "owner", plan.ID, decimal.NewFromInt(500))
	assert.True(t, errs.IsCode(err, errs.CodeInsufficientFunds))
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(100)))
}

func TestContributionCompletesPlan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 2000)

	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyManual, decimal.NewFromInt(200), testNow)
	require.NoError(t, err)

	updated, err := engine.Contribute(ctx, "owner", plan.ID, decimal.NewFromInt(1200))
	require.NoError(t, err)
	assert.Equal(t, models.PlanCompleted, updated.Status)
	assert.True(t, updated.CurrentAmount.Equal(decimal.NewFromInt(1200)))

	_, err = engine.Contribute(ctx, "owner", plan.ID, decimal.NewFromInt(10))
	assert.True(t, errs.IsCode(err, errs.CodeInvalidStateTransition), "completed is terminal")
}

// SavingsPlan(target 1000, 200/weekly, next = yesterday) against 1000 NGN:
// the sweep debits 200, advances the schedule from the previous next date,
// and the plan stays active.
func TestProcessDueAdvancesSchedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	oldNext := testNow.AddDate(0, 0, -1)
	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyWeekly, decimal.NewFromInt(200), oldNext)
	require.NoError(t, err)

	engine.ProcessDue(ctx, testNow)

	updated, err := store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, models.PlanActive, updated.Status)
	assert.Equal(t, oldNext.AddDate(0, 0, 7), updated.NextContributionDate)
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(800)))

	entries, err := store.ListEntriesByAccount(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Automated contribution to savings: bike", entries[0].Description)
}

func TestProcessDuePausesOnInsufficientFunds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 50)

	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyDaily, decimal.NewFromInt(200), testNow.Add(-time.Hour))
	require.NoError(t, err)

	engine.ProcessDue(ctx, testNow)

	paused, err := store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPaused, paused.Status)
	assert.True(t, paused.CurrentAmount.IsZero())
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(50)))

	entries, err := store.ListEntriesByAccount(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessDueCompletionDoesNotReschedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	oldNext := testNow.Add(-time.Hour)
	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(200), models.NGN, models.FrequencyWeekly, decimal.NewFromInt(200), oldNext)
	require.NoError(t, err)

	engine.ProcessDue(ctx, testNow)

	done, err := store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanCompleted, done.Status)
	assert.Equal(t, oldNext, done.NextContributionDate, "completed plans are never rescheduled")
}

func TestProcessDueIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	_, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyWeekly, decimal.NewFromInt(200), testNow.Add(-time.Hour))
	require.NoError(t, err)

	engine.ProcessDue(ctx, testNow)
	engine.ProcessDue(ctx, testNow)

	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(800)), "second sweep touches nothing")
}

// The sweep serializes on the same per-account registry as manual
// contributions: while the owner's mutex is held, the plan stays untouched.
func TestProcessDueWaitsForAccountLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewMemoryWalletStore()
	accounts := wallet.NewAccountLocks()
	engine := NewEngine(store, accounts, nil, nil)
	engine.SetClock(func() time.Time { return testNow })
	seed(t, store, "owner", 1000)

	plan, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyWeekly, decimal.NewFromInt(200), testNow.Add(-time.Hour))
	require.NoError(t, err)

	unlock := accounts.Lock("owner")

	done := make(chan struct{})
	go func() {
		engine.ProcessDue(ctx, testNow)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("sweep ran while the owner's account was locked")
	case <-time.After(50 * time.Millisecond):
	}

	untouched, err := store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, untouched.CurrentAmount.IsZero())

	unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not resume after the account lock was released")
	}

	advanced, err := store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, advanced.CurrentAmount.Equal(decimal.NewFromInt(200)))
}

func TestProcessDueIsolatesItemFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)
	seed(t, store, "owner", 1000)

	// Plan owned by a missing account fails alone; the healthy plan is
	// still processed.
	_, err := engine.Create(ctx, "ghost", "orphan", decimal.NewFromInt(500), models.NGN, models.FrequencyDaily, decimal.NewFromInt(100), testNow.Add(-time.Hour))
	require.NoError(t, err)
	healthy, err := engine.Create(ctx, "owner", "bike", decimal.NewFromInt(1000), models.NGN, models.FrequencyDaily, decimal.NewFromInt(100), testNow.Add(-time.Hour))
	require.NoError(t, err)

	engine.ProcessDue(ctx, testNow)

	updated, err := store.GetPlan(ctx, healthy.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, nairaBalance(t, store, "owner").Equal(decimal.NewFromInt(900)))
}
