package journal

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libcirc/internal/httpx"
)

const defaultTailLimit = 100

// Handler exposes read access to the journal.
type Handler struct {
	journal *Journal
}

func NewHandler(j *Journal) *Handler {
	return &Handler{journal: j}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleTail)
	r.Get("/loans/{loanID}", h.handleForLoan)
	return r
}

// handleTail pages through the journal; ?from= is the last event ID the
// caller saw, ?limit= caps the batch.
func (h *Handler) handleTail(w http.ResponseWriter, r *http.Request) {
	fromID := int64(0)
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		fromID = n
	}

	limit := defaultTailLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			httpx.Error(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	events, err := h.journal.Tail(r.Context(), fromID, limit)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []Event{}
	}

	httpx.Respond(w, http.StatusOK, events)
}

func (h *Handler) handleForLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	events, err := h.journal.ForLoan(r.Context(), loanID)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []Event{}
	}

	httpx.Respond(w, http.StatusOK, events)
}
