// Package journal records the borrowing lifecycle as an append-only event
// log. Events are written inside the same database transaction as the state
// change that caused them, so the journal never disagrees with the loan
// records it describes.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// EventType identifies a lifecycle transition.
type EventType string

const (
	LoanCreated  EventType = "LoanCreated"
	LoanReturned EventType = "LoanReturned"
	FineAssessed EventType = "FineAssessed"
)

// Event is one entry in the lifecycle journal.
type Event struct {
	ID         int64           `db:"id" json:"id"`
	LoanID     uuid.UUID       `db:"loan_id" json:"loan_id"`
	Type       EventType       `db:"event_type" json:"event_type"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`
}

// NewEvent marshals payload and wraps it as a journal entry.
func NewEvent(loanID uuid.UUID, eventType EventType, payload any) (Event, error) {
	raw, err := jsonAPI.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		LoanID:  loanID,
		Type:    eventType,
		Payload: raw,
	}, nil
}

// Journal writes and reads lifecycle events in PostgreSQL.
type Journal struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func New(db *sqlx.DB) *Journal {
	return &Journal{
		db:     db,
		tracer: otel.Tracer("libcirc/journal"),
	}
}

// AppendTx inserts an event within the caller's transaction.
func (j *Journal) AppendTx(ctx context.Context, tx *sqlx.Tx, ev Event) error {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("loan.id", ev.LoanID.String()),
			attribute.String("event.type", string(ev.Type)),
		),
	)
	defer span.End()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO loan_events (loan_id, event_type, payload, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, ev.LoanID, ev.Type, []byte(ev.Payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append %s event: %w", ev.Type, err)
	}
	return nil
}

// Tail returns up to limit events with an ID greater than fromID, oldest
// first. Callers page through the journal by passing the last ID they saw.
func (j *Journal) Tail(ctx context.Context, fromID int64, limit int) ([]Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.tail",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	var events []Event
	err := j.db.SelectContext(ctx, &events, `
		SELECT id, loan_id, event_type, payload, recorded_at
		FROM loan_events
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, fromID, limit)
	if err != nil {
		return nil, fmt.Errorf("tail journal: %w", err)
	}

	span.SetAttributes(attribute.Int("events.read", len(events)))
	return events, nil
}

// ForLoan returns the full event history of one loan record.
func (j *Journal) ForLoan(ctx context.Context, loanID uuid.UUID) ([]Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.for_loan",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	var events []Event
	err := j.db.SelectContext(ctx, &events, `
		SELECT id, loan_id, event_type, payload, recorded_at
		FROM loan_events
		WHERE loan_id = $1
		ORDER BY id ASC
	`, loanID)
	if err != nil {
		return nil, fmt.Errorf("load loan events: %w", err)
	}
	return events, nil
}
