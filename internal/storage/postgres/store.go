// Package postgres is the durable WalletStore. Units of work run as
// serializable transactions so two simultaneous debits against the same
// account cannot both commit a stale balance.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/olumayowa/walletcore/internal/errs"
	"github.com/olumayowa/walletcore/internal/interfaces"
	"github.com/olumayowa/walletcore/internal/models"
)

// querier is the common surface of *sql.DB and *sql.Tx, so the same query
// helpers serve both direct reads and units of work.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresWalletStore struct {
	db *sql.DB
}

func NewPostgresWalletStore(db *sql.DB) *PostgresWalletStore {
	return &PostgresWalletStore{db: db}
}

// Open connects to postgres and bootstraps the schema.
func Open(ctx context.Context, dsn string) (*PostgresWalletStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresWalletStore{db: db}, nil
}

func (p *PostgresWalletStore) Close() error { return p.db.Close() }

type unitOfWork struct {
	tx *sql.Tx
}

func (p *PostgresWalletStore) WithinUnitOfWork(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "begin unit of work", err)
	}

	uow := &unitOfWork{tx: tx}
	if err := fn(uow); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.CodeInternal, "commit unit of work", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func getAccount(ctx context.Context, q querier, ownerID string) (models.Account, error) {
	const query = `SELECT owner_id, username, naira_balance, dollar_balance, created_at
	FROM accounts WHERE owner_id = $1`

	var a models.Account
	err := q.QueryRowContext(ctx, query, ownerID).Scan(
		&a.OwnerID, &a.Username, &a.NairaBalance, &a.DollarBalance, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, errs.New(errs.CodeNotFound, "account not found")
	}
	if err != nil {
		return models.Account{}, errs.Wrap(errs.CodeInternal, "get account", err)
	}
	return a, nil
}

func getAccountByUsername(ctx context.Context, q querier, username string) (models.Account, error) {
	const query = `SELECT owner_id, username, naira_balance, dollar_balance, created_at
	FROM accounts WHERE username = $1`

	var a models.Account
	err := q.QueryRowContext(ctx, query, username).Scan(
		&a.OwnerID, &a.Username, &a.NairaBalance, &a.DollarBalance, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, errs.New(errs.CodeNotFound, "account not found")
	}
	if err != nil {
		return models.Account{}, errs.Wrap(errs.CodeInternal, "get account by username", err)
	}
	return a, nil
}

func saveAccount(ctx context.Context, q querier, a models.Account) error {
	const query = `INSERT INTO accounts (owner_id, username, naira_balance, dollar_balance, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (owner_id) DO UPDATE SET
		username = EXCLUDED.username,
		naira_balance = EXCLUDED.naira_balance,
		dollar_balance = EXCLUDED.dollar_balance`

	_, err := q.ExecContext(ctx, query, a.OwnerID, a.Username, a.NairaBalance, a.DollarBalance, a.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "save account", err)
	}
	return nil
}

func (p *PostgresWalletStore) GetAccount(ctx context.Context, ownerID string) (models.Account, error) {
	return getAccount(ctx, p.db, ownerID)
}

func (p *PostgresWalletStore) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	return getAccountByUsername(ctx, p.db, username)
}

func (p *PostgresWalletStore) SaveAccount(ctx context.Context, a models.Account) error {
	return saveAccount(ctx, p.db, a)
}

func (p *PostgresWalletStore) DeleteAccount(ctx context.Context, ownerID string) error {
	// ledger_entries cascade via the foreign key.
	res, err := p.db.ExecContext(ctx, `DELETE FROM accounts WHERE owner_id = $1`, ownerID)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "delete account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "delete account", err)
	}
	if n == 0 {
		return errs.New(errs.CodeNotFound, "account not found")
	}
	return nil
}

func (u *unitOfWork) GetAccount(ctx context.Context, ownerID string) (models.Account, error) {
	return getAccount(ctx, u.tx, ownerID)
}

func (u *unitOfWork) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	return getAccountByUsername(ctx, u.tx, username)
}

func (u *unitOfWork) SaveAccount(ctx context.Context, a models.Account) error {
	return saveAccount(ctx, u.tx, a)
}

// ---------------------------------------------------------------------------
// Ledger entries
// ---------------------------------------------------------------------------

func saveEntry(ctx context.Context, q querier, e models.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries (id, account_id, amount, currency, kind, description, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := q.ExecContext(ctx, query, e.ID, e.AccountID, e.Amount, e.Currency, e.Kind, e.Description, e.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "save ledger entry", err)
	}
	return nil
}

func (p *PostgresWalletStore) SaveEntry(ctx context.Context, e models.LedgerEntry) error {
	return saveEntry(ctx, p.db, e)
}

func (u *unitOfWork) SaveEntry(ctx context.Context, e models.LedgerEntry) error {
	return saveEntry(ctx, u.tx, e)
}

func (p *PostgresWalletStore) ListEntriesByAccount(ctx context.Context, ownerID string) ([]models.LedgerEntry, error) {
	const query = `SELECT id, account_id, amount, currency, kind, description, created_at
	FROM ledger_entries WHERE account_id = $1 ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list ledger entries", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Currency, &e.Kind, &e.Description, &e.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan ledger entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list ledger entries", err)
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Locks
// ---------------------------------------------------------------------------

const lockColumns = `id, owner_id, guardian_id, amount, currency, purpose, due_date, status, created_at`

func scanLock(row interface{ Scan(...any) error }) (models.Lock, error) {
	var l models.Lock
	err := row.Scan(&l.ID, &l.OwnerID, &l.GuardianID, &l.Amount, &l.Currency, &l.Purpose, &l.DueDate, &l.Status, &l.CreatedAt)
	return l, err
}

func getLock(ctx context.Context, q querier, id string) (models.Lock, error) {
	l, err := scanLock(q.QueryRowContext(ctx, `SELECT `+lockColumns+` FROM locks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Lock{}, errs.New(errs.CodeNotFound, "lock not found")
	}
	if err != nil {
		return models.Lock{}, errs.Wrap(errs.CodeInternal, "get lock", err)
	}
	return l, nil
}

func saveLock(ctx context.Context, q querier, l models.Lock) error {
	const query = `INSERT INTO locks (` + lockColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`

	_, err := q.ExecContext(ctx, query, l.ID, l.OwnerID, l.GuardianID, l.Amount, l.Currency, l.Purpose, l.DueDate, l.Status, l.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "save lock", err)
	}
	return nil
}

func (p *PostgresWalletStore) GetLock(ctx context.Context, id string) (models.Lock, error) {
	return getLock(ctx, p.db, id)
}

func (p *PostgresWalletStore) SaveLock(ctx context.Context, l models.Lock) error {
	return saveLock(ctx, p.db, l)
}

func (u *unitOfWork) GetLock(ctx context.Context, id string) (models.Lock, error) {
	return getLock(ctx, u.tx, id)
}

func (u *unitOfWork) SaveLock(ctx context.Context, l models.Lock) error {
	return saveLock(ctx, u.tx, l)
}

func (p *PostgresWalletStore) listLocks(ctx context.Context, query string, args ...any) ([]models.Lock, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list locks", err)
	}
	defer rows.Close()

	var locks []models.Lock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan lock", err)
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list locks", err)
	}
	return locks, nil
}

func (p *PostgresWalletStore) ListLocksByOwner(ctx context.Context, ownerID string) ([]models.Lock, error) {
	return p.listLocks(ctx, `SELECT `+lockColumns+` FROM locks WHERE owner_id = $1 ORDER BY created_at`, ownerID)
}

func (p *PostgresWalletStore) ListUnlockRequests(ctx context.Context, guardianID string) ([]models.Lock, error) {
	return p.listLocks(ctx,
		`SELECT `+lockColumns+` FROM locks WHERE guardian_id = $1 AND status = $2 ORDER BY created_at`,
		guardianID, models.LockUnlockRequested)
}

func (p *PostgresWalletStore) MarkMatureLocksAvailable(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE locks SET status = $1 WHERE status = $2 AND due_date <= $3`

	res, err := p.db.ExecContext(ctx, query, models.LockAvailable, models.LockActive, now)
	if err != nil {
		return 0, errs.Wrap(errs.CodeInternal, "mature locks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Wrap(errs.CodeInternal, "mature locks", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Bills
// ---------------------------------------------------------------------------

const billColumns = `id, owner_id, title, amount, currency, category, due_date, auto_pay, status, paid_at, created_at`

func scanBill(row interface{ Scan(...any) error }) (models.Bill, error) {
	var b models.Bill
	var paidAt sql.NullTime
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Amount, &b.Currency, &b.Category, &b.DueDate, &b.AutoPay, &b.Status, &paidAt, &b.CreatedAt)
	if paidAt.Valid {
		b.PaidAt = &paidAt.Time
	}
	return b, err
}

func getBill(ctx context.Context, q querier, id string) (models.Bill, error) {
	b, err := scanBill(q.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Bill{}, errs.New(errs.CodeNotFound, "bill not found")
	}
	if err != nil {
		return models.Bill{}, errs.Wrap(errs.CodeInternal, "get bill", err)
	}
	return b, nil
}

func saveBill(ctx context.Context, q querier, b models.Bill) error {
	const query = `INSERT INTO bills (` + billColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, paid_at = EXCLUDED.paid_at`

	var paidAt sql.NullTime
	if b.PaidAt != nil {
		paidAt = sql.NullTime{Time: *b.PaidAt, Valid: true}
	}
	_, err := q.ExecContext(ctx, query, b.ID, b.OwnerID, b.Title, b.Amount, b.Currency, b.Category, b.DueDate, b.AutoPay, b.Status, paidAt, b.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "save bill", err)
	}
	return nil
}

func (p *PostgresWalletStore) GetBill(ctx context.Context, id string) (models.Bill, error) {
	return getBill(ctx, p.db, id)
}

func (p *PostgresWalletStore) SaveBill(ctx context.Context, b models.Bill) error {
	return saveBill(ctx, p.db, b)
}

func (u *unitOfWork) GetBill(ctx context.Context, id string) (models.Bill, error) {
	return getBill(ctx, u.tx, id)
}

func (u *unitOfWork) SaveBill(ctx context.Context, b models.Bill) error {
	return saveBill(ctx, u.tx, b)
}

func (p *PostgresWalletStore) listBills(ctx context.Context, query string, args ...any) ([]models.Bill, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list bills", err)
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan bill", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list bills", err)
	}
	return bills, nil
}

func (p *PostgresWalletStore) ListBillsByOwner(ctx context.Context, ownerID string) ([]models.Bill, error) {
	return p.listBills(ctx, `SELECT `+billColumns+` FROM bills WHERE owner_id = $1 ORDER BY due_date`, ownerID)
}

func (p *PostgresWalletStore) DueAutoPayBills(ctx context.Context, cutoff time.Time) ([]models.Bill, error) {
	return p.listBills(ctx,
		`SELECT `+billColumns+` FROM bills WHERE status = $1 AND auto_pay AND due_date <= $2 ORDER BY due_date`,
		models.BillPending, cutoff)
}

// ---------------------------------------------------------------------------
// Savings plans
// ---------------------------------------------------------------------------

const planColumns = `id, owner_id, title, target_amount, current_amount, currency, frequency, amount_per_frequency, next_contribution_date, status, created_at`

func scanPlan(row interface{ Scan(...any) error }) (models.SavingsPlan, error) {
	var p models.SavingsPlan
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.TargetAmount, &p.CurrentAmount, &p.Currency, &p.Frequency, &p.AmountPerFrequency, &p.NextContributionDate, &p.Status, &p.CreatedAt)
	return p, err
}

func getPlan(ctx context.Context, q querier, id string) (models.SavingsPlan, error) {
	plan, err := scanPlan(q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM savings_plans WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SavingsPlan{}, errs.New(errs.CodeNotFound, "savings plan not found")
	}
	if err != nil {
		return models.SavingsPlan{}, errs.Wrap(errs.CodeInternal, "get savings plan", err)
	}
	return plan, nil
}

func savePlan(ctx context.Context, q querier, plan models.SavingsPlan) error {
	const query = `INSERT INTO savings_plans (` + planColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		current_amount = EXCLUDED.current_amount,
		next_contribution_date = EXCLUDED.next_contribution_date,
		status = EXCLUDED.status`

	_, err := q.ExecContext(ctx, query,
		plan.ID, plan.OwnerID, plan.Title, plan.TargetAmount, plan.CurrentAmount,
		plan.Currency, plan.Frequency, plan.AmountPerFrequency, plan.NextContributionDate,
		plan.Status, plan.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "save savings plan", err)
	}
	return nil
}

func (p *PostgresWalletStore) GetPlan(ctx context.Context, id string) (models.SavingsPlan, error) {
	return getPlan(ctx, p.db, id)
}

func (p *PostgresWalletStore) SavePlan(ctx context.Context, plan models.SavingsPlan) error {
	return savePlan(ctx, p.db, plan)
}

func (u *unitOfWork) GetPlan(ctx context.Context, id string) (models.SavingsPlan, error) {
	return getPlan(ctx, u.tx, id)
}

func (u *unitOfWork) SavePlan(ctx context.Context, plan models.SavingsPlan) error {
	return savePlan(ctx, u.tx, plan)
}

func (p *PostgresWalletStore) listPlans(ctx context.Context, query string, args ...any) ([]models.SavingsPlan, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list savings plans", err)
	}
	defer rows.Close()

	var plans []models.SavingsPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan savings plan", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list savings plans", err)
	}
	return plans, nil
}

func (p *PostgresWalletStore) ListPlansByOwner(ctx context.Context, ownerID string) ([]models.SavingsPlan, error) {
	return p.listPlans(ctx, `SELECT `+planColumns+` FROM savings_plans WHERE owner_id = $1 ORDER BY created_at`, ownerID)
}

func (p *PostgresWalletStore) DuePlans(ctx context.Context, now time.Time) ([]models.SavingsPlan, error) {
	return p.listPlans(ctx,
		`SELECT `+planColumns+` FROM savings_plans
		WHERE status = $1 AND frequency <> $2 AND next_contribution_date <= $3
		ORDER BY next_contribution_date`,
		models.PlanActive, models.FrequencyManual, now)
}

// Compile-time check: PostgresWalletStore implements WalletStore.
var _ interfaces.WalletStore = (*PostgresWalletStore)(nil)
