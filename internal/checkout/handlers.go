package checkout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/session"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc *Service
}

// Checkout handles POST /api/v1/carts/{id}/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	operatorID, ok := common.OperatorID(r.Context())
	if !ok || operatorID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload Input
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	out, err := h.Svc.Finalize(r.Context(), chi.URLParam(r, "id"), operatorID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, cart.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, "CART_BUSY", "cart is being modified, retry", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, ErrNegativeTotal):
		common.JSONError(w, http.StatusUnprocessableEntity, "NEGATIVE_TOTAL", err.Error(), nil)
	case errors.Is(err, session.ErrNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_SESSION", err.Error(), nil)
	case errors.Is(err, session.ErrNotOwner):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, session.ErrSessionNotOpen):
		common.JSONError(w, http.StatusConflict, "SESSION_NOT_OPEN", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
