package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestbank/crest_bank/internal/fieldcrypt"
	"github.com/crestbank/crest_bank/internal/storage"
)

// maxOpenAttempts bounds account number generation. Collisions among
// random 16-digit numbers are rare enough that hitting the bound means
// something is wrong with the randomness source.
const maxOpenAttempts = 5

// PostgresStore stores accounts in PostgreSQL. Balances and account
// numbers are sealed by the field codec before they touch a row; numbers
// use deterministic ciphertext so the unique index and equality lookups
// still work.
type PostgresStore struct {
	db      *pgxpool.Pool
	codec   *fieldcrypt.Codec
	numbers *NumberGenerator
}

// NewPostgresStore builds a Postgres-backed account store.
func NewPostgresStore(db *pgxpool.Pool, codec *fieldcrypt.Codec, numbers *NumberGenerator) *PostgresStore {
	return &PostgresStore{db: db, codec: codec, numbers: numbers}
}

const accountColumns = `account_id, owner_id, account_number, account_type, currency, balance, status, created_at`

// Open creates an account with balance zero and status active, retrying
// number generation on collision up to the bound.
func (s *PostgresStore) Open(ctx context.Context, input OpenInput) (Account, error) {
	if !ValidType(input.Type) {
		return Account{}, fmt.Errorf("unknown account type %q", input.Type)
	}

	for attempt := 0; attempt < maxOpenAttempts; attempt++ {
		number := s.codec.Seal(s.numbers.Next())
		acc := Account{
			ID:        uuid.New(),
			OwnerID:   input.OwnerID,
			Number:    number.Plain,
			Type:      input.Type,
			Currency:  input.Currency,
			Balance:   0,
			Status:    StatusActive,
			CreatedAt: time.Now().UTC(),
		}

		tag, err := s.db.Exec(ctx, `INSERT INTO account (`+accountColumns+`)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            ON CONFLICT (account_number) DO NOTHING`,
			acc.ID, acc.OwnerID, number.Cipher, acc.Type, acc.Currency,
			s.codec.EncryptInt64(0), acc.Status, acc.CreatedAt)
		if err != nil {
			return Account{}, fmt.Errorf("insert account: %w", err)
		}
		if tag.RowsAffected() == 0 {
			continue // number already taken, draw again
		}
		return acc, nil
	}
	return Account{}, ErrExhaustedRetries
}

// GetByID fetches and decrypts an account row.
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE account_id = $1`, id)
	return s.scan(row)
}

// GetByNumber looks an account up by encrypting the probe value, relying
// on deterministic ciphertext equality.
func (s *PostgresStore) GetByNumber(ctx context.Context, number string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE account_number = $1`,
		s.codec.EncryptString(number))
	return s.scan(row)
}

// ListByOwner returns all accounts belonging to an owner.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM account
        WHERE owner_id = $1 ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		acc, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// GetForUpdate re-reads an account under an exclusive row lock. Must be
// called inside an active unit of work.
func (s *PostgresStore) GetForUpdate(ctx context.Context, tx storage.Tx, id uuid.UUID) (Account, error) {
	ptx, err := storage.Pg(tx)
	if err != nil {
		return Account{}, err
	}
	row := ptx.QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE account_id = $1 FOR UPDATE`, id)
	acc, err := s.scan(row)
	if storage.IsLockTimeout(err) {
		return Account{}, storage.ErrBusy
	}
	return acc, err
}

// WriteBalance persists a new balance. The caller must still hold the row
// lock taken by GetForUpdate in the same unit of work.
func (s *PostgresStore) WriteBalance(ctx context.Context, tx storage.Tx, id uuid.UUID, balance int64) error {
	ptx, err := storage.Pg(tx)
	if err != nil {
		return err
	}
	tag, err := ptx.Exec(ctx, `UPDATE account SET balance = $1 WHERE account_id = $2`,
		s.codec.EncryptInt64(balance), id)
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close transitions an active, zero-balance account to closed. The balance
// check compares against the deterministic ciphertext of zero.
func (s *PostgresStore) Close(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `UPDATE account SET status = $1
        WHERE account_id = $2 AND status = $3 AND balance = $4`,
		StatusClosed, id, StatusActive, s.codec.EncryptInt64(0))
	if err != nil {
		return fmt.Errorf("close account: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrInvalidState
}

func (s *PostgresStore) scan(row pgx.Row) (Account, error) {
	var acc Account
	var numberCipher, balanceCipher []byte
	err := row.Scan(&acc.ID, &acc.OwnerID, &numberCipher, &acc.Type, &acc.Currency,
		&balanceCipher, &acc.Status, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	if acc.Number, err = s.codec.DecryptString(numberCipher); err != nil {
		return Account{}, fmt.Errorf("decrypt account number: %w", err)
	}
	if acc.Balance, err = s.codec.DecryptInt64(balanceCipher); err != nil {
		return Account{}, fmt.Errorf("decrypt balance: %w", err)
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	return acc, nil
}
