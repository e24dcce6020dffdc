// Package payee exposes the read-only bill payee directory. The engine
// snapshots a payee's identity fields into the ledger entry at payment
// time, so later edits to the directory never alter history.
package payee

import (
	"context"
	"errors"
)

// Payee statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	// ErrNotFound occurs when no payee matches the given identifier.
	ErrNotFound = errors.New("payee not found")

	// ErrInactive occurs when a payment targets a payee that is no longer
	// accepting bills.
	ErrInactive = errors.New("payee is inactive")
)

// Payee is reference data owned by an external billing directory.
type Payee struct {
	ID       string
	Name     string
	Code     string
	Category string
	Status   string
}

// Directory reads payee reference data. It is strictly read-only from the
// engine's point of view.
type Directory interface {
	Get(ctx context.Context, id string) (Payee, error)
	ListActive(ctx context.Context) ([]Payee, error)
	ListByCategory(ctx context.Context, category string) ([]Payee, error)
}
