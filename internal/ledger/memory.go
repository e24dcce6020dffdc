package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/storage"
)

// MemoryLog is the in-memory transaction log used in tests. Entries live
// in append order; an appended entry is journalled for rollback through
// the unit of work, and nothing ever rewrites a committed entry.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
	byRef   map[string]int
}

// NewMemoryLog builds an in-memory transaction log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{byRef: make(map[string]int)}
}

// Append records an entry, enforcing reference uniqueness.
func (l *MemoryLog) Append(_ context.Context, tx storage.Tx, e Entry) error {
	mtx, err := storage.Mem(tx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.byRef[e.Reference]; dup {
		return ErrDuplicateReference
	}

	l.entries = append(l.entries, e)
	l.byRef[e.Reference] = len(l.entries) - 1

	ref := e.Reference
	mtx.OnRollback(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// The entry to drop is always the newest one for this reference.
		idx := l.byRef[ref]
		l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
		delete(l.byRef, ref)
		for r, i := range l.byRef {
			if i > idx {
				l.byRef[r] = i - 1
			}
		}
	})
	return nil
}

// ByAccount lists entries where the account is origin or destination,
// newest first, sign-adjusted to the account's point of view.
func (l *MemoryLog) ByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if l.concerns(e, accountID) {
			matched = append(matched, viewFor(accountID, e))
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// ByReference lists all entries sharing a reference number.
func (l *MemoryLog) ByReference(_ context.Context, reference string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byRef[reference]
	if !ok {
		return nil, ErrNotFound
	}
	return []Entry{l.entries[idx]}, nil
}

// ByAccountAndRange lists entries in ascending order with inclusive
// bounds, sign-adjusted to the account's point of view.
func (l *MemoryLog) ByAccountAndRange(_ context.Context, accountID uuid.UUID, start, end time.Time) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []Entry
	for _, e := range l.entries {
		if !l.concerns(e, accountID) {
			continue
		}
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		matched = append(matched, viewFor(accountID, e))
	}
	return matched, nil
}

// BalanceAsOf returns the balance_after of the most recent owning-side
// entry strictly before the instant, or zero when none exists.
func (l *MemoryLog) BalanceAsOf(_ context.Context, accountID uuid.UUID, at time.Time) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.AccountID == accountID && e.CreatedAt.Before(at) {
			return e.BalanceAfter, nil
		}
	}
	return 0, nil
}

func (l *MemoryLog) concerns(e Entry, accountID uuid.UUID) bool {
	if e.AccountID == accountID {
		return true
	}
	return e.DestinationAccountID != nil && *e.DestinationAccountID == accountID
}
