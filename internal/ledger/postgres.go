package ledger

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

// PostgresLog persists ledger entries in PostgreSQL. Rows are append-only;
// there is no update or delete path. Amounts, balance snapshots, account
// number snapshots and payee snapshots are sealed by the field codec.
type PostgresLog struct {
	db    *pgxpool.Pool
	codec *fieldcrypt.Codec
}

// NewPostgresLog builds a Postgres-backed transaction log.
func NewPostgresLog(db *pgxpool.Pool, codec *fieldcrypt.Codec) *PostgresLog {
	return &PostgresLog{db: db, codec: codec}
}

const entryColumns = `entry_id, account_id, account_number, entry_type, amount, balance_after,
    description, reference_number, destination_account_id, destination_account_number,
    payee_id, payee_name, payee_code, origin_address, client_agent, created_at`

// Append inserts one immutable entry inside the caller's unit of work. The
// insert runs under a savepoint so a reference collision aborts only the
// insert, leaving the surrounding transaction usable for a retry with a
// fresh reference.
func (l *PostgresLog) Append(ctx context.Context, tx storage.Tx, e Entry) error {
	ptx, err := storage.Pg(tx)
	if err != nil {
		return err
	}
	sp, err := ptx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open savepoint: %w", err)
	}

	var destNumber []byte
	if e.DestinationAccountNumber != "" {
		destNumber = l.codec.EncryptString(e.DestinationAccountNumber)
	}
	var payeeName, payeeCode []byte
	if e.PayeeName != "" {
		payeeName = l.codec.EncryptString(e.PayeeName)
	}
	if e.PayeeCode != "" {
		payeeCode = l.codec.EncryptString(e.PayeeCode)
	}

	_, err = sp.Exec(ctx, `INSERT INTO ledger_entry (`+entryColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.AccountID, l.codec.EncryptString(e.AccountNumber), e.Type,
		l.codec.EncryptInt64(e.Amount), l.codec.EncryptInt64(e.BalanceAfter),
		e.Description, e.Reference, e.DestinationAccountID, destNumber,
		nullIfEmpty(e.PayeeID), payeeName, payeeCode,
		nullIfEmpty(e.OriginAddress), nullIfEmpty(e.ClientAgent), e.CreatedAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		if storage.IsUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("append entry: %w", err)
	}
	return sp.Commit(ctx)
}

// ByAccount lists entries where the account is origin or destination,
// newest first, sign-adjusted to the account's point of view.
func (l *PostgresLog) ByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entry
        WHERE account_id = $1 OR destination_account_id = $1
        ORDER BY seq DESC LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return l.collect(rows, &accountID)
}

// ByReference lists all entries sharing a reference number.
func (l *PostgresLog) ByReference(ctx context.Context, reference string) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entry
        WHERE reference_number = $1 ORDER BY seq ASC`, reference)
	if err != nil {
		return nil, fmt.Errorf("lookup reference: %w", err)
	}
	entries, err := l.collect(rows, nil)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// ByAccountAndRange lists entries in ascending order with inclusive
// bounds, sign-adjusted to the account's point of view.
func (l *PostgresLog) ByAccountAndRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entry
        WHERE (account_id = $1 OR destination_account_id = $1)
        AND created_at >= $2 AND created_at <= $3
        ORDER BY seq ASC`, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list entries by range: %w", err)
	}
	return l.collect(rows, &accountID)
}

// BalanceAsOf returns the balance_after of the most recent owning-side
// entry strictly before the instant, or zero when none exists.
func (l *PostgresLog) BalanceAsOf(ctx context.Context, accountID uuid.UUID, at time.Time) (int64, error) {
	var sealed []byte
	err := l.db.QueryRow(ctx, `SELECT balance_after FROM ledger_entry
        WHERE account_id = $1 AND created_at < $2
        ORDER BY seq DESC LIMIT 1`, accountID, at).Scan(&sealed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("balance as of: %w", err)
	}
	return l.codec.DecryptInt64(sealed)
}

func (l *PostgresLog) collect(rows pgx.Rows, viewpoint *uuid.UUID) ([]Entry, error) {
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := l.scan(rows)
		if err != nil {
			return nil, err
		}
		if viewpoint != nil {
			e = viewFor(*viewpoint, e)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *PostgresLog) scan(row pgx.Row) (Entry, error) {
	var e Entry
	var numberCipher, amountCipher, balanceCipher []byte
	var destNumber, payeeName, payeeCode []byte
	var payeeID, origin, agent *string
	err := row.Scan(&e.ID, &e.AccountID, &numberCipher, &e.Type, &amountCipher, &balanceCipher,
		&e.Description, &e.Reference, &e.DestinationAccountID, &destNumber,
		&payeeID, &payeeName, &payeeCode, &origin, &agent, &e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	if e.AccountNumber, err = l.codec.DecryptString(numberCipher); err != nil {
		return Entry{}, fmt.Errorf("decrypt account number snapshot: %w", err)
	}
	if e.Amount, err = l.codec.DecryptInt64(amountCipher); err != nil {
		return Entry{}, fmt.Errorf("decrypt amount: %w", err)
	}
	if e.BalanceAfter, err = l.codec.DecryptInt64(balanceCipher); err != nil {
		return Entry{}, fmt.Errorf("decrypt balance snapshot: %w", err)
	}
	if destNumber != nil {
		if e.DestinationAccountNumber, err = l.codec.DecryptString(destNumber); err != nil {
			return Entry{}, fmt.Errorf("decrypt destination number snapshot: %w", err)
		}
	}
	if payeeName != nil {
		if e.PayeeName, err = l.codec.DecryptString(payeeName); err != nil {
			return Entry{}, fmt.Errorf("decrypt payee name snapshot: %w", err)
		}
	}
	if payeeCode != nil {
		if e.PayeeCode, err = l.codec.DecryptString(payeeCode); err != nil {
			return Entry{}, fmt.Errorf("decrypt payee code snapshot: %w", err)
		}
	}
	if payeeID != nil {
		e.PayeeID = *payeeID
	}
	if origin != nil {
		e.OriginAddress = *origin
	}
	if agent != nil {
		e.ClientAgent = *agent
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
