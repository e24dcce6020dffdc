package storage

import (
	"context"
	"errors"
)

// ErrBusy occurs when a unit of work cannot acquire a row lock within the
// configured wait bound. The engine never retries on its own; retry policy
// belongs to the caller.
var ErrBusy = errors.New("lock wait timed out")

// Tx is one atomic unit of work. Every balance mutation and ledger append
// happens inside a Tx; a failure at any point rolls back the whole unit.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB opens units of work against the backing store.
type DB interface {
	Begin(ctx context.Context) (Tx, error)
}
