package cart

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Currency string
}

type addItemPayload struct {
	ItemID string `json:"itemId" validate:"required"`
}

type quantityPayload struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type discountPayload struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
	Type   string           `json:"type" validate:"omitempty,oneof=percentage fixed"`
}

type customerPayload struct {
	CustomerID *string `json:"customerId"`
}

type notesPayload struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// Routes mounts the cart endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/items", h.AddItem)
	r.Delete("/{id}/items/{itemId}", h.RemoveItem)
	r.Put("/{id}/items/{itemId}/quantity", h.SetQuantity)
	r.Put("/{id}/items/{itemId}/discount", h.SetItemDiscount)
	r.Put("/{id}/discount", h.SetInvoiceDiscount)
	r.Put("/{id}/customer", h.SetCustomer)
	r.Put("/{id}/notes", h.SetNotes)
	r.Post("/{id}/clear", h.Clear)
}

// Create opens a new empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, view)
}

// Get returns cart contents and the computed totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, view)
}

// Delete discards the cart.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem adds one unit of a catalog item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	h.run(w, func() (View, error) {
		return h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload.ItemID)
	})
}

// RemoveItem drops a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.run(w, func() (View, error) {
		return h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	})
}

// SetQuantity sets the quantity of a line. Zero removes it.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var payload quantityPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	h.run(w, func() (View, error) {
		return h.Svc.SetQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), *payload.Quantity)
	})
}

// SetItemDiscount sets a line discount.
func (h *Handler) SetItemDiscount(w http.ResponseWriter, r *http.Request) {
	var payload discountPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	kind, _ := pricing.ParseDiscountType(payload.Type)
	h.run(w, func() (View, error) {
		return h.Svc.SetItemDiscount(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), *payload.Amount, kind)
	})
}

// SetInvoiceDiscount sets the cart-wide discount.
func (h *Handler) SetInvoiceDiscount(w http.ResponseWriter, r *http.Request) {
	var payload discountPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	kind, _ := pricing.ParseDiscountType(payload.Type)
	h.run(w, func() (View, error) {
		return h.Svc.SetInvoiceDiscount(r.Context(), chi.URLParam(r, "id"), *payload.Amount, kind)
	})
}

// SetCustomer attaches or detaches (customerId null) the cart customer.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	h.run(w, func() (View, error) {
		return h.Svc.SetCustomer(r.Context(), chi.URLParam(r, "id"), payload.CustomerID)
	})
}

// SetNotes replaces the cart notes.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var payload notesPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	h.run(w, func() (View, error) {
		return h.Svc.SetNotes(r.Context(), chi.URLParam(r, "id"), payload.Notes)
	})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.run(w, func() (View, error) {
		return h.Svc.Clear(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) run(w http.ResponseWriter, fn func() (View, error)) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := fn()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, view)
}

func (h *Handler) respond(w http.ResponseWriter, status int, view View) {
	view.Currency = h.Currency
	common.Data(w, status, view)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, "CART_BUSY", "cart is being modified, retry", nil)
	case errors.Is(err, ErrUnknownItem), errors.Is(err, ErrUnknownCustomer):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_REFERENCE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
