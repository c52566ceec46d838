package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, input NewBook) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	Search(ctx context.Context, query string) ([]Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, update BookUpdate) (*Book, error)

	// AdjustTotalCopies moves total and available copies by delta together,
	// so copies currently on loan are never affected.
	AdjustTotalCopies(ctx context.Context, id uuid.UUID, delta int) (*Book, error)

	IsAvailable(ctx context.Context, id uuid.UUID) (bool, error)
}
