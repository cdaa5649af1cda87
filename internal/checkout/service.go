package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/cart"
	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/invoice"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

var (
	// ErrEmptyCart is returned when finalizing a cart without line items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNegativeTotal is returned when discounts push the invoice total below zero.
	ErrNegativeTotal = errors.New("invoice total is negative")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// PaymentMethods lists the accepted payment methods.
var PaymentMethods = []string{"cash", "card", "upi", "wallet", "other"}

// Input carries the payment details for a sale.
type Input struct {
	PaymentMethod  string           `json:"paymentMethod" validate:"required,oneof=cash card upi wallet other"`
	AmountTendered *decimal.Decimal `json:"amountTendered" validate:"required"`
	SessionID      string           `json:"sessionId" validate:"omitempty,uuid"`
}

// Sale is everything persisted for a finalized cart.
type Sale struct {
	CartID        string
	OperatorID    string
	SessionID     string
	Customer      *pricing.Customer
	PaymentMethod string
	Currency      string
	Notes         string
	Totals        pricing.Breakdown
	Settlement    Settlement
	At            time.Time
}

// Store persists a sale atomically.
type Store interface {
	CreateSale(ctx context.Context, sale Sale) (invoice.Invoice, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (dbgen.DomainEvent, error)
}

// Service turns carts into invoices.
type Service struct {
	Carts    *cart.Service
	Store    Store
	Events   Emitter
	Currency string
	Scale    int32
	Now      func() time.Time
	Logger   zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Finalize prices the cart, records the invoice, emits sale.completed and
// empties the cart. The cart stays locked until the invoice is stored.
func (s *Service) Finalize(ctx context.Context, cartID, operatorID string, in Input) (invoice.Invoice, error) {
	if s == nil || s.Carts == nil || s.Store == nil {
		return invoice.Invoice{}, errors.New("checkout service not configured")
	}
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return invoice.Invoice{}, fmt.Errorf("operator required: %w", ErrInvalidInput)
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if !validMethod(method) {
		return invoice.Invoice{}, fmt.Errorf("unsupported payment method %q: %w", in.PaymentMethod, ErrInvalidInput)
	}
	if in.AmountTendered == nil || in.AmountTendered.IsNegative() {
		return invoice.Invoice{}, fmt.Errorf("amountTendered must not be negative: %w", ErrInvalidInput)
	}

	var inv invoice.Invoice
	err := s.Carts.WithCart(ctx, cartID, func(ctx context.Context, st *cart.Store) error {
		state := st.State()
		if len(state.Items) == 0 {
			return ErrEmptyCart
		}
		totals := pricing.Compute(state).Round(s.Scale)
		if totals.Total.IsNegative() {
			return ErrNegativeTotal
		}
		created, err := s.Store.CreateSale(ctx, Sale{
			CartID:        strings.TrimSpace(cartID),
			OperatorID:    operatorID,
			SessionID:     strings.TrimSpace(in.SessionID),
			Customer:      state.Customer,
			PaymentMethod: method,
			Currency:      s.Currency,
			Notes:         state.Notes,
			Totals:        totals,
			Settlement:    Settle(totals.Total, *in.AmountTendered, s.Scale),
			At:            s.now(),
		})
		if err != nil {
			return err
		}
		inv = created
		st.Clear(ctx)
		return nil
	})
	if err != nil {
		return invoice.Invoice{}, err
	}

	if obs.SalesCompletedTotal != nil {
		obs.SalesCompletedTotal.WithLabelValues(inv.Status).Inc()
	}
	if obs.SalesAmountTotal != nil {
		obs.SalesAmountTotal.Add(inv.Total.InexactFloat64())
	}
	s.emit(ctx, inv)
	return inv, nil
}

func (s *Service) emit(ctx context.Context, inv invoice.Invoice) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"invoiceId":  inv.ID,
		"number":     inv.Number,
		"operatorId": inv.OperatorID,
		"status":     inv.Status,
		"total":      inv.Total,
		"currency":   inv.Currency,
	}
	if inv.Customer != nil && inv.Customer.Email != "" {
		payload["email"] = inv.Customer.Email
	}
	if _, err := s.Events.Emit(ctx, events.TopicSaleCompleted, inv.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("invoice_id", inv.ID).Msg("emit sale completed")
	}
}

func validMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
