package membership

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the membership service.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*Member, error)
	Authenticate(ctx context.Context, email, password string) (*Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)

	// Lock and Unlock are operator actions; a locked account is denied
	// borrowing by the circulation engine.
	Lock(ctx context.Context, id uuid.UUID) error
	Unlock(ctx context.Context, id uuid.UUID) error

	// PayFine reduces the fine balance by amount, which must not exceed
	// the current balance.
	PayFine(ctx context.Context, id uuid.UUID, amount int64) (*Member, error)
}
