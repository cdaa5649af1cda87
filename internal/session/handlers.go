package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes cash sessions over HTTP.
type Handler struct {
	Svc *Service
}

type cashPayload struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

// Routes mounts the session endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/", h.List)
	r.Get("/active", h.Active)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/close", h.Close)
}

// Open handles POST /api/v1/sessions.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := common.OperatorID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "operator required", nil)
		return
	}
	var in cashPayload
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	out, err := h.Svc.Open(r.Context(), operatorID, *in.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out)
}

// Active handles GET /api/v1/sessions/active.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := common.OperatorID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "operator required", nil)
		return
	}
	out, err := h.Svc.Active(r.Context(), operatorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// List handles GET /api/v1/sessions?operator=&page=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20, 100)
	out, err := h.Svc.List(r.Context(), r.URL.Query().Get("operator"), perPage, common.Offset(page, perPage))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Get handles GET /api/v1/sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Close handles POST /api/v1/sessions/{id}/close.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := common.OperatorID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "operator required", nil)
		return
	}
	var in cashPayload
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	out, err := h.Svc.Close(r.Context(), chi.URLParam(r, "id"), operatorID, *in.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrNotOwner):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrSessionAlreadyOpen):
		common.JSONError(w, http.StatusConflict, "SESSION_ALREADY_OPEN", err.Error(), nil)
	case errors.Is(err, ErrSessionNotOpen):
		common.JSONError(w, http.StatusConflict, "SESSION_NOT_OPEN", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
