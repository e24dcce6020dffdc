package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Account types.
const (
	TypeChecking = "checking"
	TypeSavings  = "savings"
)

// Account statuses.
const (
	StatusActive = "active"
	StatusClosed = "closed"
	StatusFrozen = "frozen"
)

var (
	// ErrNotFound occurs when no account matches the given identifier or number.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidState occurs when an account is not in a state that permits
	// the requested operation, e.g. closing an account that still holds funds
	// or moving money through an inactive account.
	ErrInvalidState = errors.New("account not in a valid state for this operation")

	// ErrExhaustedRetries occurs when account number generation keeps
	// colliding with existing numbers past the retry bound.
	ErrExhaustedRetries = errors.New("account number generation retries exhausted")
)

// Account is a monetary account. Balance is in minor units and never goes
// negative; it is mutated only inside a locked unit of work.
type Account struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Number    string
	Type      string
	Currency  string
	Balance   int64
	Status    string
	CreatedAt time.Time
}

// ValidType reports whether t is a supported account type.
func ValidType(t string) bool {
	return t == TypeChecking || t == TypeSavings
}
