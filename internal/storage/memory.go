package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process unit-of-work source for tests. It hands out
// per-row locks with the same bounded-wait semantics as the Postgres
// backend, so a lock-ordering mistake shows up as ErrBusy in a test run
// rather than only under a real database.
type Memory struct {
	lockWait time.Duration

	mu   sync.Mutex
	rows map[string]*rowLock
}

type rowLock struct {
	ch chan struct{}
}

// NewMemory builds an in-memory unit-of-work source with the given lock
// wait bound.
func NewMemory(lockWait time.Duration) *Memory {
	return &Memory{lockWait: lockWait, rows: make(map[string]*rowLock)}
}

// Begin opens a unit of work.
func (m *Memory) Begin(_ context.Context) (Tx, error) {
	return &MemTx{db: m}, nil
}

func (m *Memory) row(key string) *rowLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.rows[key]
	if !ok {
		lk = &rowLock{ch: make(chan struct{}, 1)}
		m.rows[key] = lk
	}
	return lk
}

// MemTx tracks the row locks and undo journal of one in-memory unit of work.
type MemTx struct {
	db   *Memory
	held []*rowLock
	keys []string
	undo []func()
	done bool
}

// Acquire takes the row lock for key, waiting up to the configured bound.
// Re-acquiring a lock already held by this unit of work is a no-op. All
// held locks release on Commit or Rollback.
func (t *MemTx) Acquire(key string) error {
	lk := t.db.row(key)
	for _, held := range t.held {
		if held == lk {
			return nil
		}
	}
	select {
	case lk.ch <- struct{}{}:
		t.held = append(t.held, lk)
		t.keys = append(t.keys, key)
		return nil
	case <-time.After(t.db.lockWait):
		return ErrBusy
	}
}

// Holds reports whether this unit of work currently holds the row lock.
func (t *MemTx) Holds(key string) bool {
	for _, k := range t.keys {
		if k == key {
			return true
		}
	}
	return false
}

// OnRollback registers an undo action applied if the unit of work aborts.
func (t *MemTx) OnRollback(undo func()) {
	t.undo = append(t.undo, undo)
}

// Commit releases all locks and discards the undo journal.
func (t *MemTx) Commit(_ context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.finish(false)
	return nil
}

// Rollback applies the undo journal in reverse order and releases all
// locks. Safe to call after Commit.
func (t *MemTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.finish(true)
	return nil
}

func (t *MemTx) finish(rollback bool) {
	if rollback {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
	}
	for _, lk := range t.held {
		<-lk.ch
	}
	t.held = nil
	t.keys = nil
	t.undo = nil
	t.done = true
}

// Mem unwraps the in-memory transaction from a Tx handle.
func Mem(tx Tx) (*MemTx, error) {
	m, ok := tx.(*MemTx)
	if !ok {
		return nil, fmt.Errorf("not a memory transaction: %T", tx)
	}
	return m, nil
}
