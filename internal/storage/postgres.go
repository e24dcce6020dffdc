package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgcodeLockNotAvailable = "55P03"
	pgcodeUniqueViolation  = "23505"
)

// Postgres opens units of work as repeatable-read transactions with a
// bounded lock wait, so a blocked SELECT FOR UPDATE surfaces as ErrBusy
// instead of stalling the caller indefinitely.
type Postgres struct {
	pool     *pgxpool.Pool
	lockWait time.Duration
}

// NewPostgres builds a unit-of-work source over a pgx pool.
func NewPostgres(pool *pgxpool.Pool, lockWait time.Duration) *Postgres {
	return &Postgres{pool: pool, lockWait: lockWait}
}

// Begin starts a repeatable-read transaction and applies the lock wait bound.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	if p.lockWait > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", p.lockWait.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}
	return &PgTx{tx: tx}, nil
}

// PgTx adapts a pgx transaction to the Tx interface.
type PgTx struct {
	tx pgx.Tx
}

// Commit finalizes the unit of work.
func (t *PgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the unit of work. Rolling back an already finished
// transaction is a no-op so it is safe to defer unconditionally.
func (t *PgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// Pg unwraps the pgx transaction from a Tx handle. Store implementations
// backed by Postgres call this to run statements inside the unit of work.
func Pg(tx Tx) (pgx.Tx, error) {
	p, ok := tx.(*PgTx)
	if !ok {
		return nil, fmt.Errorf("not a postgres transaction: %T", tx)
	}
	return p.tx, nil
}

// IsLockTimeout reports whether err is the backend signalling that a row
// lock could not be acquired within lock_timeout.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgcodeLockNotAvailable
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgcodeUniqueViolation
}
