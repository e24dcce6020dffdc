// Package banking orchestrates the money movement operations. Every
// operation runs as one atomic unit of work: lock the involved accounts in
// a fixed global order, re-read and validate under lock, write balances,
// append exactly one ledger entry, commit. Any failure aborts the whole
// unit and no partial state is ever visible to other callers.
package banking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/account"
	"github.com/crestbank/crest_bank/internal/events"
	"github.com/crestbank/crest_bank/internal/ledger"
	"github.com/crestbank/crest_bank/internal/payee"
	"github.com/crestbank/crest_bank/internal/storage"
)

var (
	// ErrInvalidAmount occurs when an operation's amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSameAccount occurs when a transfer targets its own source account.
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrInsufficientFunds occurs when a debit exceeds the source balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrExhaustedRetries occurs when reference generation keeps colliding
	// with existing references past the retry bound.
	ErrExhaustedRetries = errors.New("reference generation retries exhausted")
)

// maxReferenceAttempts bounds reference regeneration on collision.
const maxReferenceAttempts = 3

// Audit carries request provenance snapshotted into each ledger entry.
type Audit struct {
	OriginAddress string
	ClientAgent   string
}

// Service executes deposits, withdrawals, transfers and bill payments
// against the account store and transaction log.
type Service struct {
	db        storage.DB
	accounts  account.Store
	log       ledger.Log
	payees    payee.Directory
	refs      *ledger.ReferenceGenerator
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService builds the ledger engine. The publisher may be nil when no
// event sink is configured.
func NewService(db storage.DB, accounts account.Store, log ledger.Log, payees payee.Directory,
	refs *ledger.ReferenceGenerator, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		accounts:  accounts,
		log:       log,
		payees:    payees,
		refs:      refs,
		publisher: publisher,
		logger:    logger,
	}
}

// DepositInput captures a credit to an account.
type DepositInput struct {
	AccountID   uuid.UUID
	Amount      int64
	Description string
	Audit       Audit
}

// Deposit credits an active account and records one credit entry.
func (s *Service) Deposit(ctx context.Context, in DepositInput) (ledger.Entry, error) {
	if in.Amount <= 0 {
		return ledger.Entry{}, ErrInvalidAmount
	}

	var entry ledger.Entry
	err := s.inTx(ctx, func(tx storage.Tx) error {
		acc, err := s.lockActive(ctx, tx, in.AccountID)
		if err != nil {
			return err
		}

		newBalance := acc.Balance + in.Amount
		if err := s.accounts.WriteBalance(ctx, tx, acc.ID, newBalance); err != nil {
			return err
		}

		entry = ledger.Entry{
			ID:            uuid.New(),
			AccountID:     acc.ID,
			AccountNumber: acc.Number,
			Type:          ledger.TypeDeposit,
			Amount:        in.Amount,
			BalanceAfter:  newBalance,
			Description:   in.Description,
			OriginAddress: in.Audit.OriginAddress,
			ClientAgent:   in.Audit.ClientAgent,
			CreatedAt:     time.Now().UTC(),
		}
		return s.appendWithReference(ctx, tx, &entry)
	})
	if err != nil {
		return ledger.Entry{}, err
	}

	s.publish(ctx, entry)
	return entry, nil
}

// WithdrawInput captures a debit from an account.
type WithdrawInput struct {
	AccountID   uuid.UUID
	Amount      int64
	Description string
	Audit       Audit
}

// Withdraw debits an active account with sufficient funds and records one
// debit entry.
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (ledger.Entry, error) {
	if in.Amount <= 0 {
		return ledger.Entry{}, ErrInvalidAmount
	}

	var entry ledger.Entry
	err := s.inTx(ctx, func(tx storage.Tx) error {
		acc, err := s.lockActive(ctx, tx, in.AccountID)
		if err != nil {
			return err
		}
		if acc.Balance < in.Amount {
			return ErrInsufficientFunds
		}

		newBalance := acc.Balance - in.Amount
		if err := s.accounts.WriteBalance(ctx, tx, acc.ID, newBalance); err != nil {
			return err
		}

		entry = ledger.Entry{
			ID:            uuid.New(),
			AccountID:     acc.ID,
			AccountNumber: acc.Number,
			Type:          ledger.TypeWithdrawal,
			Amount:        -in.Amount,
			BalanceAfter:  newBalance,
			Description:   in.Description,
			OriginAddress: in.Audit.OriginAddress,
			ClientAgent:   in.Audit.ClientAgent,
			CreatedAt:     time.Now().UTC(),
		}
		return s.appendWithReference(ctx, tx, &entry)
	})
	if err != nil {
		return ledger.Entry{}, err
	}

	s.publish(ctx, entry)
	return entry, nil
}

// TransferInput captures a funds movement between two accounts. The
// destination is addressed by account number, the way callers see it.
type TransferInput struct {
	AccountID         uuid.UUID
	DestinationNumber string
	Amount            int64
	Description       string
	Audit             Audit
}

// Transfer moves funds between two active accounts. Exactly one debit
// entry is written on the source side with the destination identity
// snapshotted; the credited account's view is synthesized when the log is
// read, never stored as a second row.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (ledger.Entry, error) {
	if in.Amount <= 0 {
		return ledger.Entry{}, ErrInvalidAmount
	}

	// Resolve the destination identifier before locking anything; the
	// authoritative state is re-read under lock below.
	dest, err := s.accounts.GetByNumber(ctx, in.DestinationNumber)
	if err != nil {
		return ledger.Entry{}, err
	}
	if dest.ID == in.AccountID {
		return ledger.Entry{}, ErrSameAccount
	}

	var entry ledger.Entry
	err = s.inTx(ctx, func(tx storage.Tx) error {
		locked, err := s.lockAll(ctx, tx, in.AccountID, dest.ID)
		if err != nil {
			return err
		}
		src, dst := locked[in.AccountID], locked[dest.ID]
		if src.Status != account.StatusActive || dst.Status != account.StatusActive {
			return account.ErrInvalidState
		}
		if src.Balance < in.Amount {
			return ErrInsufficientFunds
		}

		newSrcBalance := src.Balance - in.Amount
		if err := s.accounts.WriteBalance(ctx, tx, src.ID, newSrcBalance); err != nil {
			return err
		}
		if err := s.accounts.WriteBalance(ctx, tx, dst.ID, dst.Balance+in.Amount); err != nil {
			return err
		}

		dstID := dst.ID
		entry = ledger.Entry{
			ID:                       uuid.New(),
			AccountID:                src.ID,
			AccountNumber:            src.Number,
			Type:                     ledger.TypeTransfer,
			Amount:                   -in.Amount,
			BalanceAfter:             newSrcBalance,
			Description:              in.Description,
			DestinationAccountID:     &dstID,
			DestinationAccountNumber: dst.Number,
			OriginAddress:            in.Audit.OriginAddress,
			ClientAgent:              in.Audit.ClientAgent,
			CreatedAt:                time.Now().UTC(),
		}
		return s.appendWithReference(ctx, tx, &entry)
	})
	if err != nil {
		return ledger.Entry{}, err
	}

	s.publish(ctx, entry)
	return entry, nil
}

// PayBillInput captures a bill payment to a directory payee.
type PayBillInput struct {
	AccountID   uuid.UUID
	PayeeID     string
	Amount      int64
	Description string
	Audit       Audit
}

// PayBill debits an active account in favor of an active payee, recording
// one debit entry with the payee identity snapshotted.
func (s *Service) PayBill(ctx context.Context, in PayBillInput) (ledger.Entry, error) {
	if in.Amount <= 0 {
		return ledger.Entry{}, ErrInvalidAmount
	}

	var entry ledger.Entry
	err := s.inTx(ctx, func(tx storage.Tx) error {
		acc, err := s.lockActive(ctx, tx, in.AccountID)
		if err != nil {
			return err
		}
		if acc.Balance < in.Amount {
			return ErrInsufficientFunds
		}

		// Resolve the payee before any balance mutation.
		p, err := s.payees.Get(ctx, in.PayeeID)
		if err != nil {
			return err
		}
		if p.Status != payee.StatusActive {
			return payee.ErrInactive
		}

		newBalance := acc.Balance - in.Amount
		if err := s.accounts.WriteBalance(ctx, tx, acc.ID, newBalance); err != nil {
			return err
		}

		entry = ledger.Entry{
			ID:            uuid.New(),
			AccountID:     acc.ID,
			AccountNumber: acc.Number,
			Type:          ledger.TypeBillPayment,
			Amount:        -in.Amount,
			BalanceAfter:  newBalance,
			Description:   in.Description,
			PayeeID:       p.ID,
			PayeeName:     p.Name,
			PayeeCode:     p.Code,
			OriginAddress: in.Audit.OriginAddress,
			ClientAgent:   in.Audit.ClientAgent,
			CreatedAt:     time.Now().UTC(),
		}
		return s.appendWithReference(ctx, tx, &entry)
	})
	if err != nil {
		return ledger.Entry{}, err
	}

	s.publish(ctx, entry)
	return entry, nil
}

// inTx runs fn inside one unit of work, committing on success and rolling
// back on any failure.
func (s *Service) inTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open unit of work: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

// lockActive locks a single account and verifies it is active.
func (s *Service) lockActive(ctx context.Context, tx storage.Tx, id uuid.UUID) (account.Account, error) {
	acc, err := s.accounts.GetForUpdate(ctx, tx, id)
	if err != nil {
		return account.Account{}, err
	}
	if acc.Status != account.StatusActive {
		return account.Account{}, account.ErrInvalidState
	}
	return acc, nil
}

// lockAll locks every involved account in ascending account-ID order. The
// fixed total order is what rules out circular wait between concurrent
// operations touching the same accounts in opposite directions.
func (s *Service) lockAll(ctx context.Context, tx storage.Tx, ids ...uuid.UUID) (map[uuid.UUID]account.Account, error) {
	ordered := make([]uuid.UUID, len(ids))
	copy(ordered, ids)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && bytes.Compare(ordered[j][:], ordered[j-1][:]) < 0; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	locked := make(map[uuid.UUID]account.Account, len(ordered))
	for _, id := range ordered {
		acc, err := s.accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = acc
	}
	return locked, nil
}

// appendWithReference appends the entry, regenerating the reference on
// collision up to the bound.
func (s *Service) appendWithReference(ctx context.Context, tx storage.Tx, entry *ledger.Entry) error {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		entry.Reference = s.refs.Next()
		err := s.log.Append(ctx, tx, *entry)
		if err == nil {
			return nil
		}
		if errors.Is(err, ledger.ErrDuplicateReference) {
			continue
		}
		return err
	}
	return ErrExhaustedRetries
}

// publish emits an entry event after commit. Delivery is best effort and
// never fails the already committed operation.
func (s *Service) publish(ctx context.Context, entry ledger.Entry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.FromEntry(entry)); err != nil && s.logger != nil {
		s.logger.Warn("publish ledger event", "reference", entry.Reference, "error", err)
	}
}
