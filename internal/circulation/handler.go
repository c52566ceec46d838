package circulation

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"libcirc/internal/httpx"
)

type Handler struct {
	service  Service
	validate *validator.Validate
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/eligibility", h.handleCheckEligibility)
	r.Post("/borrow", h.handleBorrow)
	r.Post("/return", h.handleReturn)
	r.Get("/loans/{memberID}", h.handleListOpenLoans)
	r.Get("/loans/{memberID}/history", h.handleListHistory)
	return r
}

type loanRequest struct {
	MemberID uuid.UUID `json:"member_id" validate:"required"`
	BookID   uuid.UUID `json:"book_id" validate:"required"`
}

func (h *Handler) decodeLoanRequest(r *http.Request) (loanRequest, error) {
	var req loanRequest
	if err := httpx.Decode(r, &req); err != nil {
		return req, err
	}
	return req, h.validate.Struct(req)
}

func (h *Handler) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeLoanRequest(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.service.CheckEligibility(r.Context(), req.MemberID, req.BookID)
	switch {
	case err == nil:
		httpx.Respond(w, http.StatusOK, map[string]any{"eligible": true})
	case errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrBookNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case isDenial(err):
		httpx.Respond(w, http.StatusOK, map[string]any{"eligible": false, "reason": err.Error()})
	default:
		httpx.Error(w, statusFor(err), err.Error())
	}
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeLoanRequest(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.service.Borrow(r.Context(), req.MemberID, req.BookID)
	if err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}

	httpx.Respond(w, http.StatusCreated, rec)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeLoanRequest(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.service.Return(r.Context(), req.MemberID, req.BookID)
	if err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}

	httpx.Respond(w, http.StatusOK, receipt)
}

func (h *Handler) handleListOpenLoans(w http.ResponseWriter, r *http.Request) {
	h.listLoans(w, r, h.service.ListOpenLoans)
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	h.listLoans(w, r, h.service.ListHistory)
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, memberID uuid.UUID) ([]LoanRecord, error)) {
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid member ID")
		return
	}

	loans, err := list(r.Context(), memberID)
	if err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}
	if loans == nil {
		loans = []LoanRecord{}
	}

	httpx.Respond(w, http.StatusOK, loans)
}

// isDenial reports whether err is an eligibility denial rather than a
// lookup failure or an internal fault.
func isDenial(err error) bool {
	for _, denial := range []error{
		ErrAccountLocked,
		ErrUnpaidFines,
		ErrLimitReached,
		ErrHasOverdueBooks,
		ErrBookUnavailable,
	} {
		if errors.Is(err, denial) {
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound
	case isDenial(err),
		errors.Is(err, ErrAlreadyReturned),
		errors.Is(err, ErrNotBorrowedByMember):
		return http.StatusConflict
	case errors.Is(err, ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
