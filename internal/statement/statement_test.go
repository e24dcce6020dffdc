package statement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/ledger"
	"github.com/crestbank/crest_bank/internal/storage"
)

func appendCommitted(t *testing.T, mem *storage.Memory, log *ledger.MemoryLog, e ledger.Entry) {
	t.Helper()
	ctx := context.Background()
	tx, err := mem.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := log.Append(ctx, tx, e); err != nil {
		t.Fatalf("append %s: %v", e.Reference, err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestBuildFoldsRunningBalance(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := ledger.NewMemoryLog()
	acc := uuid.New()
	june1 := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	// May history establishes the opening balance.
	appendCommitted(t, mem, log, ledger.Entry{
		ID: uuid.New(), AccountID: acc, Type: ledger.TypeDeposit,
		Amount: 10000, BalanceAfter: 10000, Reference: "TXNS1",
		CreatedAt: june1.AddDate(0, 0, -10),
	})

	appendCommitted(t, mem, log, ledger.Entry{
		ID: uuid.New(), AccountID: acc, Type: ledger.TypeWithdrawal,
		Amount: -2500, BalanceAfter: 7500, Reference: "TXNS2",
		CreatedAt: june1.AddDate(0, 0, 2),
	})
	appendCommitted(t, mem, log, ledger.Entry{
		ID: uuid.New(), AccountID: acc, Type: ledger.TypeDeposit,
		Amount: 4000, BalanceAfter: 11500, Reference: "TXNS3",
		CreatedAt: june1.AddDate(0, 0, 20),
	})

	start, end, err := MonthPeriod(2024, 6)
	if err != nil {
		t.Fatalf("month period: %v", err)
	}

	stmt, err := NewBuilder(log).Build(context.Background(), acc, start, end)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if stmt.Opening != 10000 {
		t.Fatalf("expected opening 10000, got %d", stmt.Opening)
	}
	if len(stmt.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(stmt.Lines))
	}
	if stmt.Lines[0].Running != 7500 {
		t.Fatalf("expected first running 7500, got %d", stmt.Lines[0].Running)
	}
	if stmt.Lines[1].Running != 11500 {
		t.Fatalf("expected second running 11500, got %d", stmt.Lines[1].Running)
	}
	if stmt.Closing != 11500 {
		t.Fatalf("expected closing 11500, got %d", stmt.Closing)
	}
	if stmt.Closing != stmt.Opening+stmt.Lines[0].Entry.Amount+stmt.Lines[1].Entry.Amount {
		t.Fatal("closing does not equal opening plus line amounts")
	}
}

func TestContiguousPeriodsChainBalances(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := ledger.NewMemoryLog()
	acc := uuid.New()

	refs := []string{"TXNC1", "TXNC2", "TXNC3", "TXNC4"}
	amounts := []int64{5000, -1200, 300, -800}
	times := []time.Time{
		time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 28, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.July, 2, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.July, 30, 8, 0, 0, 0, time.UTC),
	}
	running := int64(0)
	for i := range refs {
		running += amounts[i]
		appendCommitted(t, mem, log, ledger.Entry{
			ID: uuid.New(), AccountID: acc, Type: ledger.TypeDeposit,
			Amount: amounts[i], BalanceAfter: running, Reference: refs[i], CreatedAt: times[i],
		})
	}

	b := NewBuilder(log)
	ctx := context.Background()

	juneStart, juneEnd, _ := MonthPeriod(2024, 6)
	june, err := b.Build(ctx, acc, juneStart, juneEnd)
	if err != nil {
		t.Fatalf("june: %v", err)
	}

	julyStart, julyEnd, _ := MonthPeriod(2024, 7)
	july, err := b.Build(ctx, acc, julyStart, julyEnd)
	if err != nil {
		t.Fatalf("july: %v", err)
	}

	if june.Closing != july.Opening {
		t.Fatalf("june closing %d does not carry into july opening %d", june.Closing, july.Opening)
	}
	if july.Closing != 3300 {
		t.Fatalf("expected july closing 3300, got %d", july.Closing)
	}
}

func TestIncomingTransferAppearsAsCredit(t *testing.T) {
	mem := storage.NewMemory(100 * time.Millisecond)
	log := ledger.NewMemoryLog()
	src, dst := uuid.New(), uuid.New()

	appendCommitted(t, mem, log, ledger.Entry{
		ID: uuid.New(), AccountID: src, Type: ledger.TypeTransfer,
		Amount: -2000, BalanceAfter: 8000,
		DestinationAccountID: &dst, DestinationAccountNumber: "5555666677778888",
		Reference: "TXNX1", CreatedAt: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
	})

	start, end, _ := MonthPeriod(2024, 6)
	stmt, err := NewBuilder(log).Build(context.Background(), dst, start, end)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(stmt.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(stmt.Lines))
	}
	if stmt.Lines[0].Entry.Amount != 2000 {
		t.Fatalf("expected credited 2000, got %d", stmt.Lines[0].Entry.Amount)
	}
	if stmt.Closing != 2000 {
		t.Fatalf("expected closing 2000, got %d", stmt.Closing)
	}
}

func TestMonthPeriodBounds(t *testing.T) {
	start, end, err := MonthPeriod(2024, 2)
	if err != nil {
		t.Fatalf("month period: %v", err)
	}
	if !start.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	// 2024 is a leap year.
	if !end.Equal(time.Date(2024, time.February, 29, 23, 59, 59, 999999999, time.UTC)) {
		t.Fatalf("unexpected end %v", end)
	}

	for _, month := range []int{0, 13, -1} {
		if _, _, err := MonthPeriod(2024, month); err == nil {
			t.Fatalf("expected error for month %d", month)
		}
	}
}
