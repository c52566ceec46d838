package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libcirc/internal/circulation"
	"libcirc/internal/journal"
)

const txMaxAttempts = 3

// CirculationStore implements circulation.Store. Composite operations run
// in serializable transactions; conflicting transactions are retried a
// bounded number of times before ErrConflict surfaces.
type CirculationStore struct {
	db      *sqlx.DB
	journal *journal.Journal
	logger  *slog.Logger
}

func NewCirculationStore(db *sqlx.DB, j *journal.Journal, logger *slog.Logger) *CirculationStore {
	return &CirculationStore{db: db, journal: j, logger: logger}
}

func (s *CirculationStore) WithinTx(ctx context.Context, fn func(tx circulation.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.withinTxOnce(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		if attempt == txMaxAttempts {
			s.logger.Warn("transaction conflict not resolved by retries",
				"attempts", attempt, "error", err)
			return circulation.ErrConflict
		}
		s.logger.Debug("retrying transaction after conflict", "attempt", attempt)
	}
}

func (s *CirculationStore) withinTxOnce(ctx context.Context, fn func(tx circulation.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&circulationTx{tx: tx, journal: s.journal}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isSerializationFailure matches the conflict classes worth retrying:
// serialization failures, deadlocks, and unique-constraint races.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}

func (s *CirculationStore) ListOpenLoans(ctx context.Context, memberID uuid.UUID) ([]circulation.LoanRecord, error) {
	return s.listLoans(ctx, `
		SELECT id, member_id, book_id, borrow_date, due_date, return_date, status, fine_amount
		FROM loan_records
		WHERE member_id = $1 AND status = $2
		ORDER BY borrow_date ASC
	`, memberID, circulation.StatusBorrowed)
}

func (s *CirculationStore) ListHistory(ctx context.Context, memberID uuid.UUID) ([]circulation.LoanRecord, error) {
	return s.listLoans(ctx, `
		SELECT id, member_id, book_id, borrow_date, due_date, return_date, status, fine_amount
		FROM loan_records
		WHERE member_id = $1
		ORDER BY borrow_date DESC
	`, memberID)
}

func (s *CirculationStore) listLoans(ctx context.Context, query string, args ...any) ([]circulation.LoanRecord, error) {
	var loans []circulation.LoanRecord
	if err := s.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// circulationTx implements circulation.Tx over one database transaction.
// Member and book reads take row locks so eligibility holds until commit.
type circulationTx struct {
	tx      *sqlx.Tx
	journal *journal.Journal
}

func (t *circulationTx) MemberAccount(ctx context.Context, memberID uuid.UUID) (circulation.MemberAccount, error) {
	var row struct {
		Status      string `db:"account_status"`
		FineBalance int64  `db:"fine_balance"`
	}
	err := t.tx.GetContext(ctx, &row, `
		SELECT account_status, fine_balance
		FROM members
		WHERE id = $1
		FOR UPDATE
	`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return circulation.MemberAccount{}, circulation.ErrMemberNotFound
	}
	if err != nil {
		return circulation.MemberAccount{}, fmt.Errorf("load member account: %w", err)
	}
	return circulation.MemberAccount{
		Active:      row.Status == "Active",
		FineBalance: row.FineBalance,
	}, nil
}

func (t *circulationTx) BookStock(ctx context.Context, bookID uuid.UUID) (circulation.BookStock, error) {
	var row struct {
		Total     int `db:"total_copies"`
		Available int `db:"available_copies"`
	}
	err := t.tx.GetContext(ctx, &row, `
		SELECT total_copies, available_copies
		FROM books
		WHERE id = $1
		FOR UPDATE
	`, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return circulation.BookStock{}, circulation.ErrBookNotFound
	}
	if err != nil {
		return circulation.BookStock{}, fmt.Errorf("load book stock: %w", err)
	}
	return circulation.BookStock{Total: row.Total, Available: row.Available}, nil
}

func (t *circulationTx) CountOpenLoans(ctx context.Context, memberID uuid.UUID) (int, error) {
	var count int
	err := t.tx.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM loan_records
		WHERE member_id = $1 AND status = $2
	`, memberID, circulation.StatusBorrowed)
	if err != nil {
		return 0, fmt.Errorf("count open loans: %w", err)
	}
	return count, nil
}

func (t *circulationTx) HasOverdue(ctx context.Context, memberID uuid.UUID, asOf time.Time) (bool, error) {
	var overdue bool
	err := t.tx.GetContext(ctx, &overdue, `
		SELECT EXISTS (
			SELECT 1
			FROM loan_records
			WHERE member_id = $1 AND status = $2 AND due_date < $3
		)
	`, memberID, circulation.StatusBorrowed, asOf)
	if err != nil {
		return false, fmt.Errorf("check overdue loans: %w", err)
	}
	return overdue, nil
}

func (t *circulationTx) InsertLoan(ctx context.Context, rec *circulation.LoanRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO loan_records (id, member_id, book_id, borrow_date, due_date, status, fine_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.MemberID, rec.BookID, rec.BorrowDate, rec.DueDate, rec.Status, rec.FineAmount)
	if err != nil {
		return fmt.Errorf("insert loan record: %w", err)
	}
	return nil
}

func (t *circulationTx) FindOpenLoan(ctx context.Context, memberID, bookID uuid.UUID) (*circulation.LoanRecord, error) {
	var rec circulation.LoanRecord
	err := t.tx.GetContext(ctx, &rec, `
		SELECT id, member_id, book_id, borrow_date, due_date, return_date, status, fine_amount
		FROM loan_records
		WHERE member_id = $1 AND book_id = $2 AND status = $3
		ORDER BY borrow_date ASC
		LIMIT 1
	`, memberID, bookID, circulation.StatusBorrowed)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish "never borrowed" from "already brought back" for the
		// caller-facing error.
		var returned bool
		checkErr := t.tx.GetContext(ctx, &returned, `
			SELECT EXISTS (
				SELECT 1
				FROM loan_records
				WHERE member_id = $1 AND book_id = $2 AND status = $3
			)
		`, memberID, bookID, circulation.StatusReturned)
		if checkErr != nil {
			return nil, fmt.Errorf("check returned loans: %w", checkErr)
		}
		if returned {
			return nil, circulation.ErrAlreadyReturned
		}
		return nil, circulation.ErrNotBorrowedByMember
	}
	if err != nil {
		return nil, fmt.Errorf("find open loan: %w", err)
	}
	return &rec, nil
}

func (t *circulationTx) FinalizeLoan(ctx context.Context, recordID uuid.UUID, returnedAt time.Time, fine int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE loan_records
		SET return_date = $2, status = $3, fine_amount = $4
		WHERE id = $1 AND status = $5
	`, recordID, returnedAt, circulation.StatusReturned, fine, circulation.StatusBorrowed)
	if err != nil {
		return fmt.Errorf("finalize loan record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize loan record: %w", err)
	}
	if affected == 0 {
		return circulation.ErrAlreadyReturned
	}
	return nil
}

func (t *circulationTx) DecrementAvailable(ctx context.Context, bookID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = NOW()
		WHERE id = $1 AND available_copies > 0
	`, bookID)
	if err != nil {
		return fmt.Errorf("decrement availability: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement availability: %w", err)
	}
	if affected == 0 {
		return circulation.ErrBookUnavailable
	}
	return nil
}

func (t *circulationTx) IncrementAvailable(ctx context.Context, bookID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1, updated_at = NOW()
		WHERE id = $1 AND available_copies < total_copies
	`, bookID)
	if err != nil {
		return fmt.Errorf("increment availability: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment availability: %w", err)
	}
	if affected == 0 {
		return circulation.ErrInvariantViolation
	}
	return nil
}

func (t *circulationTx) AddFine(ctx context.Context, memberID uuid.UUID, amount int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE members
		SET fine_balance = fine_balance + $2, updated_at = NOW()
		WHERE id = $1
	`, memberID, amount)
	if err != nil {
		return fmt.Errorf("add fine: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add fine: %w", err)
	}
	if affected == 0 {
		return circulation.ErrMemberNotFound
	}
	return nil
}

func (t *circulationTx) AppendEvent(ctx context.Context, ev journal.Event) error {
	return t.journal.AppendTx(ctx, t.tx, ev)
}
