package circulation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"libcirc/internal/journal"
)

// memStore is an in-memory Store with the same atomicity contract as the
// database-backed one: transactions are serialized and a failed fn leaves
// no trace.
type memStore struct {
	mu      sync.Mutex
	members map[uuid.UUID]memMember
	books   map[uuid.UUID]memBook
	loans   []LoanRecord
	events  []journal.Event
}

type memMember struct {
	active      bool
	fineBalance int64
}

type memBook struct {
	total     int
	available int
}

func newMemStore() *memStore {
	return &memStore{
		members: make(map[uuid.UUID]memMember),
		books:   make(map[uuid.UUID]memBook),
	}
}

func (m *memStore) addMember(active bool, fineBalance int64) uuid.UUID {
	id := uuid.New()
	m.members[id] = memMember{active: active, fineBalance: fineBalance}
	return id
}

func (m *memStore) addBook(total, available int) uuid.UUID {
	id := uuid.New()
	m.books[id] = memBook{total: total, available: available}
	return id
}

func (m *memStore) addLoan(rec LoanRecord) {
	m.loans = append(m.loans, rec)
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, books, loans, events := m.snapshot()
	if err := fn(&memTx{s: m}); err != nil {
		m.members, m.books, m.loans, m.events = members, books, loans, events
		return err
	}
	return nil
}

func (m *memStore) snapshot() (map[uuid.UUID]memMember, map[uuid.UUID]memBook, []LoanRecord, []journal.Event) {
	members := make(map[uuid.UUID]memMember, len(m.members))
	for k, v := range m.members {
		members[k] = v
	}
	books := make(map[uuid.UUID]memBook, len(m.books))
	for k, v := range m.books {
		books[k] = v
	}
	loans := make([]LoanRecord, len(m.loans))
	copy(loans, m.loans)
	events := make([]journal.Event, len(m.events))
	copy(events, m.events)
	return members, books, loans, events
}

func (m *memStore) ListOpenLoans(_ context.Context, memberID uuid.UUID) ([]LoanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []LoanRecord
	for _, rec := range m.loans {
		if rec.MemberID == memberID && rec.Status == StatusBorrowed {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) ListHistory(_ context.Context, memberID uuid.UUID) ([]LoanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []LoanRecord
	for _, rec := range m.loans {
		if rec.MemberID == memberID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) openLoanCount(bookID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, rec := range m.loans {
		if rec.BookID == bookID && rec.Status == StatusBorrowed {
			count++
		}
	}
	return count
}

func (m *memStore) eventTypes() []journal.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]journal.EventType, 0, len(m.events))
	for _, ev := range m.events {
		types = append(types, ev.Type)
	}
	return types
}

// memTx operates on the store directly; WithinTx holds the lock and
// restores the snapshot on failure.
type memTx struct {
	s *memStore
}

func (t *memTx) MemberAccount(_ context.Context, memberID uuid.UUID) (MemberAccount, error) {
	member, ok := t.s.members[memberID]
	if !ok {
		return MemberAccount{}, ErrMemberNotFound
	}
	return MemberAccount{Active: member.active, FineBalance: member.fineBalance}, nil
}

func (t *memTx) BookStock(_ context.Context, bookID uuid.UUID) (BookStock, error) {
	book, ok := t.s.books[bookID]
	if !ok {
		return BookStock{}, ErrBookNotFound
	}
	return BookStock{Total: book.total, Available: book.available}, nil
}

func (t *memTx) CountOpenLoans(_ context.Context, memberID uuid.UUID) (int, error) {
	count := 0
	for _, rec := range t.s.loans {
		if rec.MemberID == memberID && rec.Status == StatusBorrowed {
			count++
		}
	}
	return count, nil
}

func (t *memTx) HasOverdue(_ context.Context, memberID uuid.UUID, asOf time.Time) (bool, error) {
	for _, rec := range t.s.loans {
		if rec.MemberID == memberID && rec.Overdue(asOf) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertLoan(_ context.Context, rec *LoanRecord) error {
	t.s.loans = append(t.s.loans, *rec)
	return nil
}

func (t *memTx) FindOpenLoan(_ context.Context, memberID, bookID uuid.UUID) (*LoanRecord, error) {
	returned := false
	for i := range t.s.loans {
		rec := t.s.loans[i]
		if rec.MemberID != memberID || rec.BookID != bookID {
			continue
		}
		if rec.Status == StatusBorrowed {
			return &rec, nil
		}
		returned = true
	}
	if returned {
		return nil, ErrAlreadyReturned
	}
	return nil, ErrNotBorrowedByMember
}

func (t *memTx) FinalizeLoan(_ context.Context, recordID uuid.UUID, returnedAt time.Time, fine int64) error {
	for i := range t.s.loans {
		if t.s.loans[i].ID != recordID {
			continue
		}
		if t.s.loans[i].Status != StatusBorrowed {
			return ErrAlreadyReturned
		}
		at := returnedAt
		t.s.loans[i].ReturnDate = &at
		t.s.loans[i].Status = StatusReturned
		t.s.loans[i].FineAmount = fine
		return nil
	}
	return ErrNotBorrowedByMember
}

func (t *memTx) DecrementAvailable(_ context.Context, bookID uuid.UUID) error {
	book, ok := t.s.books[bookID]
	if !ok {
		return ErrBookNotFound
	}
	if book.available <= 0 {
		return ErrBookUnavailable
	}
	book.available--
	t.s.books[bookID] = book
	return nil
}

func (t *memTx) IncrementAvailable(_ context.Context, bookID uuid.UUID) error {
	book, ok := t.s.books[bookID]
	if !ok {
		return ErrBookNotFound
	}
	if book.available >= book.total {
		return ErrInvariantViolation
	}
	book.available++
	t.s.books[bookID] = book
	return nil
}

func (t *memTx) AddFine(_ context.Context, memberID uuid.UUID, amount int64) error {
	member, ok := t.s.members[memberID]
	if !ok {
		return ErrMemberNotFound
	}
	member.fineBalance += amount
	t.s.members[memberID] = member
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, ev journal.Event) error {
	t.s.events = append(t.s.events, ev)
	return nil
}
