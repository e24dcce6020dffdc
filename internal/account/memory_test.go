package account

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/storage"
)

func TestNumberGeneratorFormat(t *testing.T) {
	g := NewNumberGenerator(rand.New(rand.NewSource(1)))
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n := g.Next()
		if len(n) != NumberLength {
			t.Fatalf("expected %d digits, got %q", NumberLength, n)
		}
		if strings.Trim(n, "0123456789") != "" {
			t.Fatalf("non-digit characters in %q", n)
		}
		seen[n] = true
	}
	if len(seen) < 2 {
		t.Fatal("generator produced a single number across 50 draws")
	}
}

func TestOpenAssignsNumberAndDefaults(t *testing.T) {
	s := NewMemoryStore(NewNumberGenerator(nil))
	acc, err := s.Open(context.Background(), OpenInput{OwnerID: uuid.New(), Type: TypeChecking, Currency: "USD"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if acc.Balance != 0 {
		t.Fatalf("expected zero opening balance, got %d", acc.Balance)
	}
	if acc.Status != StatusActive {
		t.Fatalf("expected active status, got %q", acc.Status)
	}
	if len(acc.Number) != NumberLength {
		t.Fatalf("expected %d digit number, got %q", NumberLength, acc.Number)
	}

	got, err := s.GetByNumber(context.Background(), acc.Number)
	if err != nil {
		t.Fatalf("get by number: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("lookup by number returned wrong account")
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	s := NewMemoryStore(NewNumberGenerator(nil))
	if _, err := s.Open(context.Background(), OpenInput{OwnerID: uuid.New(), Type: "premium", Currency: "USD"}); err == nil {
		t.Fatal("expected error for unknown account type")
	}
}

func TestOpenExhaustsRetriesOnCollision(t *testing.T) {
	// Two generators with the same seed draw the same sequence. Taking the
	// first maxOpenAttempts numbers up front forces every candidate in Open
	// to collide.
	probe := NewNumberGenerator(rand.New(rand.NewSource(42)))
	s := NewMemoryStore(NewNumberGenerator(rand.New(rand.NewSource(42))))
	for i := 0; i < maxOpenAttempts; i++ {
		s.byNumber[probe.Next()] = uuid.New()
	}

	_, err := s.Open(context.Background(), OpenInput{OwnerID: uuid.New(), Type: TypeSavings, Currency: "USD"})
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
}

func TestCloseRequiresActiveZeroBalance(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory(100 * time.Millisecond)
	s := NewMemoryStore(NewNumberGenerator(nil))

	acc, err := s.Open(ctx, OpenInput{OwnerID: uuid.New(), Type: TypeChecking, Currency: "USD"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Fund the account, then closing must be refused.
	tx, _ := mem.Begin(ctx)
	if _, err := s.GetForUpdate(ctx, tx, acc.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := s.WriteBalance(ctx, tx, acc.ID, 500); err != nil {
		t.Fatalf("write balance: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := s.Close(ctx, acc.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for funded account, got %v", err)
	}

	// Drain and close.
	tx2, _ := mem.Begin(ctx)
	if _, err := s.GetForUpdate(ctx, tx2, acc.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := s.WriteBalance(ctx, tx2, acc.ID, 0); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := tx2.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := s.Close(ctx, acc.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Closing twice is invalid, and unknown accounts are not found.
	if err := s.Close(ctx, acc.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double close, got %v", err)
	}
	if err := s.Close(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteBalanceRequiresRowLock(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory(100 * time.Millisecond)
	s := NewMemoryStore(NewNumberGenerator(nil))

	acc, err := s.Open(ctx, OpenInput{OwnerID: uuid.New(), Type: TypeChecking, Currency: "USD"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	tx, _ := mem.Begin(ctx)
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := s.WriteBalance(ctx, tx, acc.ID, 100); err == nil {
		t.Fatal("expected write without row lock to fail")
	}
}

func TestWriteBalanceRollsBack(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory(100 * time.Millisecond)
	s := NewMemoryStore(NewNumberGenerator(nil))

	acc, err := s.Open(ctx, OpenInput{OwnerID: uuid.New(), Type: TypeSavings, Currency: "USD"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	tx, _ := mem.Begin(ctx)
	if _, err := s.GetForUpdate(ctx, tx, acc.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := s.WriteBalance(ctx, tx, acc.ID, 700); err != nil {
		t.Fatalf("write balance: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	got, err := s.GetByID(ctx, acc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 0 {
		t.Fatalf("expected balance restored to 0, got %d", got.Balance)
	}
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(NewNumberGenerator(nil))
	owner := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := s.Open(ctx, OpenInput{OwnerID: owner, Type: TypeChecking, Currency: "USD"}); err != nil {
			t.Fatalf("open: %v", err)
		}
	}
	if _, err := s.Open(ctx, OpenInput{OwnerID: uuid.New(), Type: TypeChecking, Currency: "USD"}); err != nil {
		t.Fatalf("open other: %v", err)
	}

	accounts, err := s.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
}
