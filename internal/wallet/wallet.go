// Package wallet implements the account service: balance queries, manual
// ledger movements, the administrative balance override, and account
// deletion. Every balance change travels with exactly one ledger entry
// inside one unit of work, except the override, which is the documented
// escape hatch outside the ledger path.
package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/olumayowa/walletcore/internal/errs"
	"github.com/olumayowa/walletcore/internal/interfaces"
	"github.com/olumayowa/walletcore/internal/models"
	"github.com/olumayowa/walletcore/internal/models/events"
)

// Service exposes account operations to the external collaborators.
type Service struct {
	store     interfaces.WalletStore
	accounts  *AccountLocks
	publisher interfaces.EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store interfaces.WalletStore, accounts *AccountLocks, publisher interfaces.EventPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		accounts:  accounts,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the service clock.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateAccount provisions the wallet for a new identity with zero
// balances. Called by the identity collaborator after signup.
func (s *Service) CreateAccount(ctx context.Context, ownerID, username string) (models.Account, error) {
	if ownerID == "" || username == "" {
		return models.Account{}, errs.New(errs.CodeValidation, "owner id and username are required")
	}
	account := models.Account{
		OwnerID:       ownerID,
		Username:      username,
		NairaBalance:  decimal.Zero,
		DollarBalance: decimal.Zero,
		CreatedAt:     s.now(),
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// Balances returns both balances for the owner.
func (s *Service) Balances(ctx context.Context, ownerID string) (models.Account, error) {
	return s.store.GetAccount(ctx, ownerID)
}

// Record applies a manual ledger movement: income credits, expense debits.
// The balance delta and the entry commit in one unit of work.
func (s *Service) Record(ctx context.Context, ownerID string, amount decimal.Decimal, currency models.Currency, kind models.EntryKind, description string) (models.LedgerEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.LedgerEntry{}, errs.New(errs.CodeValidation, "amount must be a positive number")
	}
	if _, err := models.ParseCurrency(string(currency)); err != nil {
		return models.LedgerEntry{}, err
	}
	if _, err := models.ParseEntryKind(string(kind)); err != nil {
		return models.LedgerEntry{}, err
	}
	if description == "" {
		return models.LedgerEntry{}, errs.New(errs.CodeValidation, "description is required")
	}

	defer s.accounts.Lock(ownerID)()

	entry := models.LedgerEntry{
		ID:          uuid.New().String(),
		AccountID:   ownerID,
		Amount:      amount,
		Currency:    currency,
		Kind:        kind,
		Description: description,
		CreatedAt:   s.now(),
	}

	err := s.store.WithinUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		account, err := uow.GetAccount(ctx, ownerID)
		if err != nil {
			return err
		}
		if kind == models.EntryExpense {
			if err := account.Debit(amount, currency); err != nil {
				return err
			}
		} else {
			account.Credit(amount, currency)
		}
		if err := uow.SaveAccount(ctx, account); err != nil {
			return err
		}
		return uow.SaveEntry(ctx, entry)
	})
	if err != nil {
		return models.LedgerEntry{}, err
	}

	EmitLedgerRecorded(s.publisher, s.log, entry)
	return entry, nil
}

// Entries lists the ledger history for the owner.
func (s *Service) Entries(ctx context.Context, ownerID string) ([]models.LedgerEntry, error) {
	return s.store.ListEntriesByAccount(ctx, ownerID)
}

// OverrideBalances unconditionally overwrites both balances. No ledger
// entry is written; this bypass sits outside the consistency guarantees
// and must never be merged into the ledger path.
func (s *Service) OverrideBalances(ctx context.Context, ownerID string, naira, dollar decimal.Decimal) (models.Account, error) {
	defer s.accounts.Lock(ownerID)()

	account, err := s.store.GetAccount(ctx, ownerID)
	if err != nil {
		return models.Account{}, err
	}
	account.Override(naira, dollar)
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return models.Account{}, err
	}
	s.log.Warn("balances overridden administratively",
		zap.String("owner_id", ownerID),
		zap.String("naira_balance", naira.String()),
		zap.String("dollar_balance", dollar.String()),
	)
	return account, nil
}

// DeleteAccount removes the account together with its ledger entries.
func (s *Service) DeleteAccount(ctx context.Context, ownerID string) error {
	defer s.accounts.Lock(ownerID)()
	return s.store.DeleteAccount(ctx, ownerID)
}

// EmitLedgerRecorded publishes a LedgerRecorded event best-effort after a
// unit of work commits. A publish failure is logged, never propagated:
// the ledger is already durable.
func EmitLedgerRecorded(publisher interfaces.EventPublisher, log *zap.Logger, entry models.LedgerEntry) {
	if publisher == nil {
		return
	}
	event := events.LedgerRecorded{
		EntryID:     entry.ID,
		AccountID:   entry.AccountID,
		Amount:      entry.Amount,
		Currency:    string(entry.Currency),
		Kind:        string(entry.Kind),
		Description: entry.Description,
		OccurredAt:  entry.CreatedAt,
	}
	if err := publisher.Publish(events.TopicLedgerRecorded, event); err != nil {
		if log == nil {
			log = zap.NewNop()
		}
		log.Warn("publish ledger event", zap.String("entry_id", entry.ID), zap.Error(err))
	}
}
