// Package events emits ledger entry events to downstream consumers after
// a unit of work commits. Delivery is best effort: the ledger itself is
// the source of truth, events are a notification channel.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/crestbank/crest_bank/internal/ledger"
)

// EntryEvent is the published shape of a committed ledger entry. Amounts
// stay in minor units; encrypted snapshots are not included.
type EntryEvent struct {
	EntryID      string    `json:"entry_id"`
	AccountID    string    `json:"account_id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Reference    string    `json:"reference"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromEntry maps a committed entry to its event form.
func FromEntry(e ledger.Entry) EntryEvent {
	return EntryEvent{
		EntryID:      e.ID.String(),
		AccountID:    e.AccountID.String(),
		Type:         e.Type,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Reference:    e.Reference,
		CreatedAt:    e.CreatedAt,
	}
}

// Publisher delivers entry events to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, event EntryEvent) error
}

// LogPublisher is a stub implementation that writes events to the logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a logging publisher stub.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish writes the event to the structured logger.
func (p *LogPublisher) Publish(_ context.Context, event EntryEvent) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("ledger event",
		"reference", event.Reference,
		"type", event.Type,
		"account_id", event.AccountID,
		"amount", event.Amount)
	return nil
}
