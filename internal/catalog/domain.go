package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Book is a catalog entry with its copy bookkeeping. available_copies only
// moves through the circulation engine's borrow and return transactions;
// the catalog itself adjusts it solely together with total_copies.
type Book struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Author          string    `db:"author" json:"author"`
	Category        string    `db:"category" json:"category"`
	Description     string    `db:"description" json:"description,omitempty"`
	TotalCopies     int       `db:"total_copies" json:"total_copies"`
	AvailableCopies int       `db:"available_copies" json:"available_copies"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// NewBook is the input for adding a catalog entry. All copies of a new
// book start out available.
type NewBook struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	TotalCopies int    `json:"total_copies" validate:"gte=0"`
}

// BookUpdate is a typed partial update. Nil fields are left untouched; the
// update is compiled to a single parameterized statement.
type BookUpdate struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

func (u BookUpdate) empty() bool {
	return u.Title == nil && u.Author == nil && u.Category == nil && u.Description == nil
}

var (
	ErrNotFound = errors.New("book not found")

	// ErrInvalidAdjustment means a total-copies change would leave fewer
	// copies than are currently on loan.
	ErrInvalidAdjustment = errors.New("adjustment would exceed copies on loan")

	ErrEmptyUpdate = errors.New("no fields to update")
)
