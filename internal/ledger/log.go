package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/storage"
)

// Log is the append-only transaction ledger. Append runs inside the
// caller's unit of work; the read views never mutate and may observe a
// slightly stale but self-consistent snapshot.
//
// Read views where the account can be the destination of a transfer
// return amounts sign-adjusted to that account's point of view, so a
// single physical transfer row serves both legs. Swapping in a true
// double-entry backend later only requires another Log implementation.
type Log interface {
	Append(ctx context.Context, tx storage.Tx, entry Entry) error

	// ByAccount lists entries where the account is origin or destination,
	// newest first.
	ByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error)

	// ByReference lists every entry sharing a reference number. Today that
	// is at most one row; the slice return leaves room for a double-entry
	// backend.
	ByReference(ctx context.Context, reference string) ([]Entry, error)

	// ByAccountAndRange lists entries in ascending chronological order with
	// inclusive bounds.
	ByAccountAndRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]Entry, error)

	// BalanceAsOf returns the owning-side balance immediately before the
	// instant, or zero when the account has no prior entries.
	BalanceAsOf(ctx context.Context, accountID uuid.UUID, at time.Time) (int64, error)
}
