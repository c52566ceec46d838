package membership

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
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/{memberID}", h.handleGetMember)
	r.Post("/{memberID}/lock", h.handleLock)
	r.Post("/{memberID}/unlock", h.handleUnlock)
	r.Post("/{memberID}/fines/pay", h.handlePayFine)
	return r
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Name     string `json:"name" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}

	httpx.Respond(w, http.StatusCreated, member)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}

	httpx.Respond(w, http.StatusOK, member)
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}

	httpx.Respond(w, http.StatusOK, member)
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Lock)
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Unlock)
}

func (h *Handler) handlePayFine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount int64 `json:"amount" validate:"required,gt=0"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.service.PayFine(r.Context(), id, req.Amount)
	if err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}

	httpx.Respond(w, http.StatusOK, member)
}

func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid member ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id uuid.UUID) error) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	if err := set(r.Context(), id); err != nil {
		httpx.Error(w, statusFor(err), err.Error())
		return
	}

	httpx.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrExcessPayment):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
