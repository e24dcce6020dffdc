package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/storage"
)

// OpenInput captures the data required to open an account.
type OpenInput struct {
	OwnerID  uuid.UUID
	Type     string
	Currency string
}

// Store persists account records. GetForUpdate and WriteBalance must only
// be called inside an active unit of work: GetForUpdate takes an exclusive
// row lock, and WriteBalance assumes that lock is still held.
type Store interface {
	Open(ctx context.Context, input OpenInput) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByNumber(ctx context.Context, number string) (Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Account, error)
	GetForUpdate(ctx context.Context, tx storage.Tx, id uuid.UUID) (Account, error)
	WriteBalance(ctx context.Context, tx storage.Tx, id uuid.UUID, balance int64) error
	Close(ctx context.Context, id uuid.UUID) error
}
