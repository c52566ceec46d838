package circulation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libcirc/internal/journal"
)

// service implements the Service interface.
type service struct {
	store  Store
	rules  Rules
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates the borrowing engine with the given policy.
func NewService(store Store, rules Rules, logger *slog.Logger) Service {
	return &service{
		store:  store,
		rules:  rules,
		logger: logger,
		tracer: otel.Tracer("libcirc/circulation"),
		now:    time.Now,
	}
}

// CheckEligibility runs the read-only decision without any side effects.
func (s *service) CheckEligibility(ctx context.Context, memberID, bookID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "circulation.check_eligibility",
		trace.WithAttributes(
			attribute.String("member.id", memberID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	return s.store.WithinTx(ctx, func(tx Tx) error {
		return evaluateEligibility(ctx, tx, s.rules, memberID, bookID, s.now().UTC())
	})
}

// Borrow runs the borrow composite: eligibility, loan creation, and the
// availability decrement commit or roll back together.
func (s *service) Borrow(ctx context.Context, memberID, bookID uuid.UUID) (*LoanRecord, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.borrow",
		trace.WithAttributes(
			attribute.String("member.id", memberID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	var rec *LoanRecord
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		now := s.now().UTC()

		if err := evaluateEligibility(ctx, tx, s.rules, memberID, bookID, now); err != nil {
			return err
		}

		rec = &LoanRecord{
			ID:         uuid.New(),
			MemberID:   memberID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    now.AddDate(0, 0, s.rules.BorrowPeriodDays),
			Status:     StatusBorrowed,
		}
		if err := tx.InsertLoan(ctx, rec); err != nil {
			return err
		}

		if err := tx.DecrementAvailable(ctx, bookID); err != nil {
			return err
		}

		ev, err := journal.NewEvent(rec.ID, journal.LoanCreated, LoanCreatedEvent{
			LoanID:   rec.ID,
			MemberID: memberID,
			BookID:   bookID,
			DueDate:  rec.DueDate,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, ev)
	})
	if err != nil {
		span.SetAttributes(attribute.String("denial.reason", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.String("loan.id", rec.ID.String()))
	return rec, nil
}

// Return runs the return composite: finalize, availability increment, and
// fine accrual commit or roll back together.
func (s *service) Return(ctx context.Context, memberID, bookID uuid.UUID) (*ReturnReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(
			attribute.String("member.id", memberID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	var receipt *ReturnReceipt
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		rec, err := tx.FindOpenLoan(ctx, memberID, bookID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		overdueDays, fine := CalculateFine(rec.DueDate, now, s.rules.FinePerDay)

		if err := tx.FinalizeLoan(ctx, rec.ID, now, fine); err != nil {
			return err
		}
		if err := tx.IncrementAvailable(ctx, bookID); err != nil {
			return err
		}

		if fine > 0 {
			if err := tx.AddFine(ctx, memberID, fine); err != nil {
				return err
			}
			ev, err := journal.NewEvent(rec.ID, journal.FineAssessed, FineAssessedEvent{
				LoanID:   rec.ID,
				MemberID: memberID,
				Amount:   fine,
			})
			if err != nil {
				return err
			}
			if err := tx.AppendEvent(ctx, ev); err != nil {
				return err
			}
		}

		ev, err := journal.NewEvent(rec.ID, journal.LoanReturned, LoanReturnedEvent{
			LoanID:      rec.ID,
			MemberID:    memberID,
			BookID:      bookID,
			ReturnDate:  now,
			OverdueDays: overdueDays,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}

		receipt = &ReturnReceipt{
			RecordID:    rec.ID,
			ReturnDate:  now,
			OverdueDays: overdueDays,
			FineAmount:  fine,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			s.logger.Error("return aborted on availability inconsistency",
				"member_id", memberID, "book_id", bookID, "error", err)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("overdue.days", receipt.OverdueDays),
		attribute.Int64("fine.amount", receipt.FineAmount),
	)
	return receipt, nil
}

func (s *service) ListOpenLoans(ctx context.Context, memberID uuid.UUID) ([]LoanRecord, error) {
	return s.store.ListOpenLoans(ctx, memberID)
}

func (s *service) ListHistory(ctx context.Context, memberID uuid.UUID) ([]LoanRecord, error) {
	return s.store.ListHistory(ctx, memberID)
}
