package membership

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AccountStatus gates borrowing: a Locked member cannot borrow until an
// operator unlocks the account.
type AccountStatus string

const (
	StatusActive AccountStatus = "Active"
	StatusLocked AccountStatus = "Locked"
)

// Member is a library member. FineBalance accumulates in VND; it only
// grows through the circulation engine and only shrinks through PayFine.
type Member struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	Email       string        `db:"email" json:"email"`
	Name        string        `db:"name" json:"name"`
	Status      AccountStatus `db:"account_status" json:"account_status"`
	FineBalance int64         `db:"fine_balance" json:"fine_balance"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Credential holds a member's login secret, kept out of every response.
type Credential struct {
	MemberID     uuid.UUID `db:"member_id" json:"-"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Salt         string    `db:"salt" json:"-"`
}

var (
	ErrNotFound           = errors.New("member not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many requests")

	// ErrExcessPayment means a fine payment would drive the balance
	// negative.
	ErrExcessPayment = errors.New("payment exceeds fine balance")
)
