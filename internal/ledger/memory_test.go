package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/storage"
)

func appendCommitted(t *testing.T, mem *storage.Memory, log *MemoryLog, e Entry) {
	t.Helper()
	ctx := context.Background()
	tx, err := mem.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := log.Append(ctx, tx, e); err != nil {
		tx.Rollback(ctx) // nolint:errcheck
		t.Fatalf("append %s: %v", e.Reference, err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestAppendRejectsDuplicateReference(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := NewMemoryLog()
	acc := uuid.New()
	base := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	appendCommitted(t, mem, log, Entry{
		ID: uuid.New(), AccountID: acc, Type: TypeDeposit,
		Amount: 1000, BalanceAfter: 1000, Reference: "TXN1", CreatedAt: base,
	})

	ctx := context.Background()
	tx, _ := mem.Begin(ctx)
	defer tx.Rollback(ctx) // nolint:errcheck
	err := log.Append(ctx, tx, Entry{
		ID: uuid.New(), AccountID: acc, Type: TypeDeposit,
		Amount: 500, BalanceAfter: 1500, Reference: "TXN1", CreatedAt: base.Add(time.Second),
	})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
}

func TestRollbackRemovesAppendedEntry(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := NewMemoryLog()
	ctx := context.Background()
	acc := uuid.New()

	tx, _ := mem.Begin(ctx)
	err := log.Append(ctx, tx, Entry{
		ID: uuid.New(), AccountID: acc, Type: TypeDeposit,
		Amount: 1000, BalanceAfter: 1000, Reference: "TXNROLL", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if _, err := log.ByReference(ctx, "TXNROLL"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after rollback, got %v", err)
	}
	entries, err := log.ByAccount(ctx, acc, 0, 0)
	if err != nil {
		t.Fatalf("by account: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty log after rollback, got %d entries", len(entries))
	}
}

func TestByAccountNewestFirstWithPaging(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := NewMemoryLog()
	ctx := context.Background()
	acc := uuid.New()
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		appendCommitted(t, mem, log, Entry{
			ID: uuid.New(), AccountID: acc, Type: TypeDeposit,
			Amount: int64(100 * (i + 1)), BalanceAfter: 0,
			Reference: "TXNP" + string(rune('A'+i)), CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	page, err := log.ByAccount(ctx, acc, 2, 1)
	if err != nil {
		t.Fatalf("by account: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
	// Newest first, offset 1 skips the most recent append.
	if page[0].Reference != "TXNPD" || page[1].Reference != "TXNPC" {
		t.Fatalf("unexpected page order: %s, %s", page[0].Reference, page[1].Reference)
	}

	empty, err := log.ByAccount(ctx, acc, 10, 99)
	if err != nil {
		t.Fatalf("by account past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d entries", len(empty))
	}
}

func TestDestinationViewSignFlips(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := NewMemoryLog()
	ctx := context.Background()
	src, dst := uuid.New(), uuid.New()

	appendCommitted(t, mem, log, Entry{
		ID: uuid.New(), AccountID: src, Type: TypeTransfer,
		Amount: -2500, BalanceAfter: 7500,
		DestinationAccountID: &dst, DestinationAccountNumber: "1111222233334444",
		Reference: "TXNT1", CreatedAt: time.Now().UTC(),
	})

	fromSrc, err := log.ByAccount(ctx, src, 0, 0)
	if err != nil {
		t.Fatalf("source view: %v", err)
	}
	if len(fromSrc) != 1 || fromSrc[0].Amount != -2500 {
		t.Fatalf("expected source debit -2500, got %+v", fromSrc)
	}

	fromDst, err := log.ByAccount(ctx, dst, 0, 0)
	if err != nil {
		t.Fatalf("destination view: %v", err)
	}
	if len(fromDst) != 1 || fromDst[0].Amount != 2500 {
		t.Fatalf("expected destination credit 2500, got %+v", fromDst)
	}
	if fromDst[0].Reference != "TXNT1" {
		t.Fatalf("destination view lost the reference: %q", fromDst[0].Reference)
	}
}

func TestByAccountAndRangeInclusiveBounds(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := NewMemoryLog()
	ctx := context.Background()
	acc := uuid.New()
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 30, 23, 59, 59, 0, time.UTC)

	times := []time.Time{
		start.Add(-time.Second), // before
		start,                   // on the lower bound
		start.Add(15 * 24 * time.Hour),
		end,                    // on the upper bound
		end.Add(time.Second),   // after
	}
	for i, at := range times {
		appendCommitted(t, mem, log, Entry{
			ID: uuid.New(), AccountID: acc, Type: TypeDeposit,
			Amount: 100, Reference: "TXNR" + string(rune('A'+i)), CreatedAt: at,
		})
	}

	got, err := log.ByAccountAndRange(ctx, acc, start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries in range, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatal("range results not in ascending order")
		}
	}
}

func TestBalanceAsOf(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := NewMemoryLog()
	ctx := context.Background()
	acc := uuid.New()
	base := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	appendCommitted(t, mem, log, Entry{
		ID: uuid.New(), AccountID: acc, Type: TypeDeposit,
		Amount: 1000, BalanceAfter: 1000, Reference: "TXNB1", CreatedAt: base,
	})
	appendCommitted(t, mem, log, Entry{
		ID: uuid.New(), AccountID: acc, Type: TypeWithdrawal,
		Amount: -400, BalanceAfter: 600, Reference: "TXNB2", CreatedAt: base.Add(time.Hour),
	})

	// No history before the first entry.
	bal, err := log.BalanceAsOf(ctx, acc, base)
	if err != nil {
		t.Fatalf("as of first: %v", err)
	}
	if bal != 0 {
		t.Fatalf("expected 0 before first entry, got %d", bal)
	}

	// Strictly-before semantics: an instant equal to the second entry's
	// timestamp sees only the first.
	bal, err = log.BalanceAsOf(ctx, acc, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("as of second: %v", err)
	}
	if bal != 1000 {
		t.Fatalf("expected 1000, got %d", bal)
	}

	bal, err = log.BalanceAsOf(ctx, acc, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("as of later: %v", err)
	}
	if bal != 600 {
		t.Fatalf("expected 600, got %d", bal)
	}
}
