package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libcirc/internal/journal"
)

// Service is the borrowing lifecycle engine exposed to collaborators.
type Service interface {
	// CheckEligibility reports whether the member may borrow the book right
	// now. It returns nil when eligible, or the first failing reason.
	CheckEligibility(ctx context.Context, memberID, bookID uuid.UUID) error

	// Borrow creates a loan record and decrements availability as one
	// atomic unit. No mutation occurs on denial.
	Borrow(ctx context.Context, memberID, bookID uuid.UUID) (*LoanRecord, error)

	// Return finalizes the member's open loan for the book, computes any
	// overdue fine, and increments availability as one atomic unit.
	Return(ctx context.Context, memberID, bookID uuid.UUID) (*ReturnReceipt, error)

	ListOpenLoans(ctx context.Context, memberID uuid.UUID) ([]LoanRecord, error)
	ListHistory(ctx context.Context, memberID uuid.UUID) ([]LoanRecord, error)
}

// Store is the transactional persistence the engine drives. All mutation of
// availability counters and loan status goes through WithinTx; no other
// path may touch them.
type Store interface {
	// WithinTx runs fn in one transaction. If fn returns an error nothing
	// it did is visible. Implementations retry a bounded number of times on
	// write conflicts before surfacing ErrConflict.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	ListOpenLoans(ctx context.Context, memberID uuid.UUID) ([]LoanRecord, error)
	ListHistory(ctx context.Context, memberID uuid.UUID) ([]LoanRecord, error)
}

// Tx is the set of operations available inside one transaction. Row reads
// take locks so the values they return hold until commit.
type Tx interface {
	MemberAccount(ctx context.Context, memberID uuid.UUID) (MemberAccount, error)
	BookStock(ctx context.Context, bookID uuid.UUID) (BookStock, error)
	CountOpenLoans(ctx context.Context, memberID uuid.UUID) (int, error)
	HasOverdue(ctx context.Context, memberID uuid.UUID, asOf time.Time) (bool, error)

	InsertLoan(ctx context.Context, rec *LoanRecord) error
	FindOpenLoan(ctx context.Context, memberID, bookID uuid.UUID) (*LoanRecord, error)
	FinalizeLoan(ctx context.Context, recordID uuid.UUID, returnedAt time.Time, fine int64) error

	// DecrementAvailable fails with ErrBookUnavailable when no copies are
	// left; the check happens at decrement time, under the transaction.
	DecrementAvailable(ctx context.Context, bookID uuid.UUID) error
	// IncrementAvailable fails with ErrInvariantViolation if the result
	// would exceed total copies.
	IncrementAvailable(ctx context.Context, bookID uuid.UUID) error

	AddFine(ctx context.Context, memberID uuid.UUID, amount int64) error
	AppendEvent(ctx context.Context, ev journal.Event) error
}
