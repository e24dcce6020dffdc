package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/storage"
)

// MemoryStore is the in-memory account store used in tests. Row-level
// isolation comes from the storage.MemTx lock it acquires in GetForUpdate;
// the internal mutex only guards map access.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]Account
	byNumber map[string]uuid.UUID
	numbers  *NumberGenerator
}

// NewMemoryStore builds an in-memory account store.
func NewMemoryStore(numbers *NumberGenerator) *MemoryStore {
	return &MemoryStore{
		byID:     make(map[uuid.UUID]Account),
		byNumber: make(map[string]uuid.UUID),
		numbers:  numbers,
	}
}

func lockKey(id uuid.UUID) string {
	return "account:" + id.String()
}

// Open creates an account with balance zero and status active, retrying
// number generation on collision up to the same bound as the Postgres store.
func (s *MemoryStore) Open(_ context.Context, input OpenInput) (Account, error) {
	if !ValidType(input.Type) {
		return Account{}, fmt.Errorf("unknown account type %q", input.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxOpenAttempts; attempt++ {
		number := s.numbers.Next()
		if _, taken := s.byNumber[number]; taken {
			continue
		}
		acc := Account{
			ID:        uuid.New(),
			OwnerID:   input.OwnerID,
			Number:    number,
			Type:      input.Type,
			Currency:  input.Currency,
			Balance:   0,
			Status:    StatusActive,
			CreatedAt: time.Now().UTC(),
		}
		s.byID[acc.ID] = acc
		s.byNumber[number] = acc.ID
		return acc, nil
	}
	return Account{}, ErrExhaustedRetries
}

// GetByID fetches an account copy.
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

// GetByNumber fetches an account copy by its number.
func (s *MemoryStore) GetByNumber(_ context.Context, number string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[number]
	if !ok {
		return Account{}, ErrNotFound
	}
	return s.byID[id], nil
}

// ListByOwner returns all accounts belonging to an owner.
func (s *MemoryStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []Account
	for _, acc := range s.byID {
		if acc.OwnerID == ownerID {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

// GetForUpdate takes the row lock for the account through the unit of work
// and returns a fresh copy.
func (s *MemoryStore) GetForUpdate(_ context.Context, tx storage.Tx, id uuid.UUID) (Account, error) {
	mtx, err := storage.Mem(tx)
	if err != nil {
		return Account{}, err
	}
	if err := mtx.Acquire(lockKey(id)); err != nil {
		return Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

// WriteBalance persists a new balance and journals the old one for
// rollback. It refuses to run without the row lock from GetForUpdate, so
// protocol violations fail loudly in tests.
func (s *MemoryStore) WriteBalance(_ context.Context, tx storage.Tx, id uuid.UUID, balance int64) error {
	mtx, err := storage.Mem(tx)
	if err != nil {
		return err
	}
	if !mtx.Holds(lockKey(id)) {
		return fmt.Errorf("write balance without row lock on %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}

	prev := acc.Balance
	mtx.OnRollback(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.byID[id]; ok {
			cur.Balance = prev
			s.byID[id] = cur
		}
	})

	acc.Balance = balance
	s.byID[id] = acc
	return nil
}

// Close transitions an active, zero-balance account to closed.
func (s *MemoryStore) Close(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if acc.Status != StatusActive || acc.Balance != 0 {
		return ErrInvalidState
	}
	acc.Status = StatusClosed
	s.byID[id] = acc
	return nil
}
