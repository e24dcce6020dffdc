package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entry types.
const (
	TypeDeposit     = "deposit"
	TypeWithdrawal  = "withdrawal"
	TypeTransfer    = "transfer"
	TypeBillPayment = "bill_payment"
)

var (
	// ErrDuplicateReference indicates the entry's reference number already
	// exists. The engine regenerates and retries a bounded number of times.
	ErrDuplicateReference = errors.New("duplicate reference number")

	// ErrNotFound occurs when no entry matches the given reference.
	ErrNotFound = errors.New("transaction not found")
)

// Entry is one immutable ledger record. Amount is signed in minor units:
// positive credits the owning account, negative debits it. BalanceAfter is
// the owning account's balance snapshotted at write time, not a value
// recomputed on read. Account numbers and payee identity are denormalized
// snapshots so later changes to those records never rewrite history.
//
// A transfer produces exactly one physical entry, written on the debit
// side with the destination identity snapshotted. The credited account's
// view is synthesized at read time by sign-flipping; see viewFor.
type Entry struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	AccountNumber string
	Type          string
	Amount        int64
	BalanceAfter  int64
	Description   string
	Reference     string

	// Transfer-only destination snapshot.
	DestinationAccountID     *uuid.UUID
	DestinationAccountNumber string

	// Bill-payment-only payee snapshot.
	PayeeID   string
	PayeeName string
	PayeeCode string

	// Audit fields describing where the request came from.
	OriginAddress string
	ClientAgent   string

	CreatedAt time.Time
}

// viewFor adjusts an entry to the given account's point of view: when the
// account is the destination of a transfer, the stored debit becomes an
// incoming credit with the same reference.
func viewFor(accountID uuid.UUID, e Entry) Entry {
	if e.Type == TypeTransfer && e.DestinationAccountID != nil && *e.DestinationAccountID == accountID {
		if e.Amount < 0 {
			e.Amount = -e.Amount
		}
	}
	return e
}
