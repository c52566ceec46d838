package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Rules is the configured borrowing policy.
type Rules struct {
	BorrowPeriodDays  int
	MaxBooksPerMember int
	FinePerDay        int64
}

// evaluateEligibility runs the borrow preconditions and returns nil when
// the member may borrow the book, or the first failing reason. The order is
// part of the contract: account and fine checks come before catalog checks,
// so a locked or indebted member is never told the book is the blocker.
//
// Every borrow path goes through this one function. It is re-run inside the
// borrow transaction so the availability it saw cannot go stale between
// check and decrement.
func evaluateEligibility(ctx context.Context, tx Tx, rules Rules, memberID, bookID uuid.UUID, asOf time.Time) error {
	acct, err := tx.MemberAccount(ctx, memberID)
	if err != nil {
		return err
	}
	if !acct.Active {
		return ErrAccountLocked
	}
	if acct.FineBalance > 0 {
		return ErrUnpaidFines
	}

	open, err := tx.CountOpenLoans(ctx, memberID)
	if err != nil {
		return err
	}
	if open >= rules.MaxBooksPerMember {
		return ErrLimitReached
	}

	overdue, err := tx.HasOverdue(ctx, memberID, asOf)
	if err != nil {
		return err
	}
	if overdue {
		return ErrHasOverdueBooks
	}

	stock, err := tx.BookStock(ctx, bookID)
	if err != nil {
		return err
	}
	if stock.Available <= 0 {
		return ErrBookUnavailable
	}

	return nil
}
