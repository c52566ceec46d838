package circulation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the stored state of a loan record. Overdue is deliberately
// not a stored status: it is computed from due_date at evaluation time, so
// a record can become overdue without a write.
type LoanStatus string

const (
	StatusBorrowed LoanStatus = "Borrowed"
	StatusReturned LoanStatus = "Returned"
)

// LoanRecord is the source of truth for who holds which book and until
// when. Records are created at borrow time, mutated exactly once at return
// time, and never deleted.
type LoanRecord struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	MemberID   uuid.UUID  `db:"member_id" json:"member_id"`
	BookID     uuid.UUID  `db:"book_id" json:"book_id"`
	BorrowDate time.Time  `db:"borrow_date" json:"borrow_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	Status     LoanStatus `db:"status" json:"status"`
	FineAmount int64      `db:"fine_amount" json:"fine_amount"`
}

// Overdue reports whether an open record's due date has passed as of now.
func (r LoanRecord) Overdue(now time.Time) bool {
	return r.Status == StatusBorrowed && r.DueDate.Before(now)
}

// ReturnReceipt is the outcome of a successful return.
type ReturnReceipt struct {
	RecordID    uuid.UUID `json:"record_id"`
	ReturnDate  time.Time `json:"return_date"`
	OverdueDays int       `json:"overdue_days"`
	FineAmount  int64     `json:"fine_amount"`
}

// MemberAccount is the narrow view of a member the engine needs to decide
// eligibility.
type MemberAccount struct {
	Active      bool
	FineBalance int64
}

// BookStock is the copy bookkeeping view of a book.
type BookStock struct {
	Total     int
	Available int
}

// Error taxonomy of the borrowing engine. Eligibility denials are surfaced
// verbatim as the borrow-denial reason and never retried.
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrBookNotFound        = errors.New("book not found")
	ErrAccountLocked       = errors.New("account is locked")
	ErrUnpaidFines         = errors.New("member has unpaid fines")
	ErrLimitReached        = errors.New("borrow limit reached")
	ErrHasOverdueBooks     = errors.New("member has overdue books")
	ErrBookUnavailable     = errors.New("book is not available")
	ErrAlreadyReturned     = errors.New("loan already returned")
	ErrNotBorrowedByMember = errors.New("book not borrowed by this member")

	// ErrInvariantViolation means the availability counter disagrees with
	// the open loan records. It indicates an atomicity bug upstream and is
	// never silently repaired.
	ErrInvariantViolation = errors.New("availability counter inconsistency")

	// ErrConflict is returned after bounded retries of a transaction that
	// kept colliding with concurrent writes.
	ErrConflict = errors.New("concurrent update conflict, try again")
)

// Journal payloads.

// LoanCreatedEvent is recorded when a borrow transaction commits.
type LoanCreatedEvent struct {
	LoanID   uuid.UUID `json:"loan_id"`
	MemberID uuid.UUID `json:"member_id"`
	BookID   uuid.UUID `json:"book_id"`
	DueDate  time.Time `json:"due_date"`
}

// LoanReturnedEvent is recorded when a return transaction commits.
type LoanReturnedEvent struct {
	LoanID      uuid.UUID `json:"loan_id"`
	MemberID    uuid.UUID `json:"member_id"`
	BookID      uuid.UUID `json:"book_id"`
	ReturnDate  time.Time `json:"return_date"`
	OverdueDays int       `json:"overdue_days"`
}

// FineAssessedEvent is recorded when an overdue return accrues a fine.
type FineAssessedEvent struct {
	LoanID   uuid.UUID `json:"loan_id"`
	MemberID uuid.UUID `json:"member_id"`
	Amount   int64     `json:"amount"`
}
