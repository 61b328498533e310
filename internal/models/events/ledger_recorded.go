package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopicLedgerRecorded is the topic ledger events are published under.
const TopicLedgerRecorded = "ledger_recorded"

// LedgerRecorded is published after a money-moving unit of work commits.
type LedgerRecorded struct {
	EntryID     string          `json:"entry_id"`
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
