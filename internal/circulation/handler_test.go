package circulation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService returns canned responses so handler tests exercise only
// decoding, routing and status mapping.
type stubService struct {
	eligibilityErr error
	borrowRec      *LoanRecord
	borrowErr      error
	returnReceipt  *ReturnReceipt
	returnErr      error
	openLoans      []LoanRecord
	history        []LoanRecord
	listErr        error
}

func (s *stubService) CheckEligibility(context.Context, uuid.UUID, uuid.UUID) error {
	return s.eligibilityErr
}

func (s *stubService) Borrow(context.Context, uuid.UUID, uuid.UUID) (*LoanRecord, error) {
	return s.borrowRec, s.borrowErr
}

func (s *stubService) Return(context.Context, uuid.UUID, uuid.UUID) (*ReturnReceipt, error) {
	return s.returnReceipt, s.returnErr
}

func (s *stubService) ListOpenLoans(context.Context, uuid.UUID) ([]LoanRecord, error) {
	return s.openLoans, s.listErr
}

func (s *stubService) ListHistory(context.Context, uuid.UUID) ([]LoanRecord, error) {
	return s.history, s.listErr
}

func loanRequestBody() string {
	return fmt.Sprintf(`{"member_id":%q,"book_id":%q}`, uuid.New(), uuid.New())
}

func TestHandleBorrow(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		rec := &LoanRecord{
			ID:         uuid.New(),
			MemberID:   uuid.New(),
			BookID:     uuid.New(),
			BorrowDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			DueDate:    time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			Status:     StatusBorrowed,
		}
		h := NewHandler(&stubService{borrowRec: rec})

		req := httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), rec.ID.String())
		assert.Contains(t, rr.Body.String(), string(StatusBorrowed))
	})

	t.Run("denial maps to conflict", func(t *testing.T) {
		h := NewHandler(&stubService{borrowErr: ErrBookUnavailable})

		req := httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("unknown member maps to not found", func(t *testing.T) {
		h := NewHandler(&stubService{borrowErr: ErrMemberNotFound})

		req := httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("write conflict maps to service unavailable", func(t *testing.T) {
		h := NewHandler(&stubService{borrowErr: ErrConflict})

		req := httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		h := NewHandler(&stubService{})

		req := httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleCheckEligibility(t *testing.T) {
	t.Run("eligible", func(t *testing.T) {
		h := NewHandler(&stubService{})

		req := httptest.NewRequest(http.MethodPost, "/eligibility", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"eligible":true`)
	})

	t.Run("denial is a 200 with reason", func(t *testing.T) {
		h := NewHandler(&stubService{eligibilityErr: ErrUnpaidFines})

		req := httptest.NewRequest(http.MethodPost, "/eligibility", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"eligible":false`)
		assert.Contains(t, rr.Body.String(), ErrUnpaidFines.Error())
	})

	t.Run("unknown book is a 404", func(t *testing.T) {
		h := NewHandler(&stubService{eligibilityErr: ErrBookNotFound})

		req := httptest.NewRequest(http.MethodPost, "/eligibility", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleReturn(t *testing.T) {
	t.Run("receipt includes fine", func(t *testing.T) {
		h := NewHandler(&stubService{returnReceipt: &ReturnReceipt{
			RecordID:    uuid.New(),
			ReturnDate:  time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC),
			OverdueDays: 5,
			FineAmount:  50000,
		}})

		req := httptest.NewRequest(http.MethodPost, "/return", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"fine_amount":50000`)
	})

	t.Run("already returned maps to conflict", func(t *testing.T) {
		h := NewHandler(&stubService{returnErr: ErrAlreadyReturned})

		req := httptest.NewRequest(http.MethodPost, "/return", strings.NewReader(loanRequestBody()))
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestHandleListOpenLoans(t *testing.T) {
	t.Run("empty list encodes as array", func(t *testing.T) {
		h := NewHandler(&stubService{})

		req := httptest.NewRequest(http.MethodGet, "/loans/"+uuid.NewString(), nil)
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
	})

	t.Run("invalid member ID rejected", func(t *testing.T) {
		h := NewHandler(&stubService{})

		req := httptest.NewRequest(http.MethodGet, "/loans/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
