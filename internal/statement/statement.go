// Package statement rebuilds bounded-period account statements from the
// transaction log. It is a pure read path and never mutates anything.
package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/ledger"
)

// Line is one statement row with a running balance attached.
type Line struct {
	Entry   ledger.Entry
	Running int64
}

// Statement covers one period: opening balance, sign-adjusted lines with
// running balances, and the closing balance. For contiguous periods the
// closing of one equals the opening of the next.
type Statement struct {
	AccountID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Opening     int64
	Lines       []Line
	Closing     int64
}

// Builder reconstructs statements from the transaction log.
type Builder struct {
	log ledger.Log
}

// NewBuilder builds a statement builder.
func NewBuilder(log ledger.Log) *Builder {
	return &Builder{log: log}
}

// Build reconstructs the statement for one period. The running balance is
// recomputed by folding the sign-adjusted entries from the opening
// balance; the persisted balance_after snapshots reflect only the owning
// side's ledger at a possibly different point in global order, so they are
// not used for display.
func (b *Builder) Build(ctx context.Context, accountID uuid.UUID, start, end time.Time) (Statement, error) {
	opening, err := b.log.BalanceAsOf(ctx, accountID, start)
	if err != nil {
		return Statement{}, fmt.Errorf("opening balance: %w", err)
	}

	entries, err := b.log.ByAccountAndRange(ctx, accountID, start, end)
	if err != nil {
		return Statement{}, fmt.Errorf("period entries: %w", err)
	}

	stmt := Statement{
		AccountID:   accountID,
		PeriodStart: start,
		PeriodEnd:   end,
		Opening:     opening,
		Lines:       make([]Line, 0, len(entries)),
	}

	running := opening
	for _, e := range entries {
		running += e.Amount
		stmt.Lines = append(stmt.Lines, Line{Entry: e, Running: running})
	}
	stmt.Closing = running
	return stmt, nil
}

// MonthPeriod returns the inclusive bounds of a calendar month in UTC,
// matching how statements are requested.
func MonthPeriod(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %d", month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}
