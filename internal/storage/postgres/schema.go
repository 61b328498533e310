package postgres

// Schema bootstraps the five wallet tables. Statements are idempotent so
// the server can run it at every start.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	owner_id       TEXT PRIMARY KEY,
	username       TEXT NOT NULL UNIQUE,
	naira_balance  NUMERIC(20, 4) NOT NULL DEFAULT 0,
	dollar_balance NUMERIC(20, 4) NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES accounts(owner_id) ON DELETE CASCADE,
	amount      NUMERIC(20, 4) NOT NULL,
	currency    TEXT NOT NULL,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account_id);

CREATE TABLE IF NOT EXISTS locks (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	guardian_id TEXT NOT NULL,
	amount      NUMERIC(20, 4) NOT NULL,
	currency    TEXT NOT NULL,
	purpose     TEXT NOT NULL,
	due_date    TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_locks_owner ON locks(owner_id);
CREATE INDEX IF NOT EXISTS idx_locks_guardian_status ON locks(guardian_id, status);

CREATE TABLE IF NOT EXISTS bills (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	amount     NUMERIC(20, 4) NOT NULL,
	currency   TEXT NOT NULL,
	category   TEXT NOT NULL,
	due_date   TIMESTAMPTZ NOT NULL,
	auto_pay   BOOLEAN NOT NULL,
	status     TEXT NOT NULL,
	paid_at    TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bills_owner ON bills(owner_id);
CREATE INDEX IF NOT EXISTS idx_bills_due ON bills(status, auto_pay, due_date);

CREATE TABLE IF NOT EXISTS savings_plans (
	id                     TEXT PRIMARY KEY,
	owner_id               TEXT NOT NULL,
	title                  TEXT NOT NULL,
	target_amount          NUMERIC(20, 4) NOT NULL,
	current_amount         NUMERIC(20, 4) NOT NULL,
	currency               TEXT NOT NULL,
	frequency              TEXT NOT NULL,
	amount_per_frequency   NUMERIC(20, 4) NOT NULL,
	next_contribution_date TIMESTAMPTZ NOT NULL,
	status                 TEXT NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_savings_plans_owner ON savings_plans(owner_id);
CREATE INDEX IF NOT EXISTS idx_savings_plans_due ON savings_plans(status, frequency, next_contribution_date);
`
