package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnknownItem is returned when a catalog item cannot be resolved.
var ErrUnknownItem = errors.New("catalog item not found")

// ErrUnknownCustomer is returned when a customer cannot be resolved.
var ErrUnknownCustomer = errors.New("customer not found")

// Catalog resolves sellable records by id.
type Catalog interface {
	Lookup(ctx context.Context, id string) (pricing.CatalogItem, bool, error)
}

// Customers resolves customer references by id.
type Customers interface {
	Lookup(ctx context.Context, id string) (pricing.Customer, bool, error)
}

// Locker serialises work on a key across callers.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// View is a cart snapshot together with its computed totals.
type View struct {
	ID string `json:"id"`
	pricing.Cart
	Totals   pricing.Breakdown `json:"totals"`
	Currency string            `json:"currency,omitempty"`
}

// Service manages carts keyed by id on top of the Store.
type Service struct {
	Persister Persister
	Locker    Locker
	Catalog   Catalog
	Customers Customers
	LockTTL   time.Duration
	Logger    zerolog.Logger
}

func (s *Service) lockTTL() time.Duration {
	if s == nil || s.LockTTL <= 0 {
		return 10 * time.Second
	}
	return s.LockTTL
}

func (s *Service) ready() error {
	if s == nil || s.Persister == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create persists a new empty cart and returns it.
func (s *Service) Create(ctx context.Context) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	id := uuid.NewString()
	state := pricing.NewCart()
	if err := s.Persister.Save(ctx, Key(id), state); err != nil {
		return View{}, fmt.Errorf("save cart: %w", err)
	}
	return newView(id, state), nil
}

// Get returns the cart state and totals.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	state, ok, err := s.Persister.Load(ctx, Key(id))
	if err != nil {
		return View{}, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return View{}, ErrNotFound
	}
	return newView(id, normalize(state)), nil
}

// WithCart runs fn against the cart's Store while holding the cart lock.
func (s *Service) WithCart(ctx context.Context, id string, fn func(context.Context, *Store) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("cart id required: %w", ErrInvalidInput)
	}
	run := func(ctx context.Context) error {
		_, ok, err := s.Persister.Load(ctx, Key(id))
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if !ok {
			return ErrNotFound
		}
		store := NewStore(ctx, StoreConfig{Key: Key(id), Persister: s.Persister, Logger: s.Logger})
		return fn(ctx, store)
	}
	if s.Locker == nil {
		return run(ctx)
	}
	return s.Locker.WithLock(ctx, "lock:"+Key(id), s.lockTTL(), run)
}

func (s *Service) mutate(ctx context.Context, id, op string, fn func(context.Context, *Store) error) (View, error) {
	var view View
	err := s.WithCart(ctx, id, func(ctx context.Context, store *Store) error {
		if err := fn(ctx, store); err != nil {
			return err
		}
		view = newView(id, store.State())
		return nil
	})
	if err != nil {
		return View{}, err
	}
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op).Inc()
	}
	return view, nil
}

// AddItem resolves the catalog record and adds it to the cart.
func (s *Service) AddItem(ctx context.Context, id, itemID string) (View, error) {
	if s == nil || s.Catalog == nil {
		return View{}, errors.New("catalog not configured")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return View{}, fmt.Errorf("itemId required: %w", ErrInvalidInput)
	}
	item, ok, err := s.Catalog.Lookup(ctx, itemID)
	if err != nil {
		return View{}, fmt.Errorf("lookup catalog item: %w", err)
	}
	if !ok {
		return View{}, ErrUnknownItem
	}
	return s.mutate(ctx, id, "add_item", func(ctx context.Context, st *Store) error {
		st.AddItem(ctx, item)
		return nil
	})
}

// RemoveItem removes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (View, error) {
	return s.mutate(ctx, id, "remove_item", func(ctx context.Context, st *Store) error {
		st.RemoveItem(ctx, itemID)
		return nil
	})
}

// SetQuantity updates a line quantity; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, id, itemID string, quantity int) (View, error) {
	return s.mutate(ctx, id, "set_quantity", func(ctx context.Context, st *Store) error {
		st.SetQuantity(ctx, itemID, quantity)
		return nil
	})
}

// SetItemDiscount updates a line discount.
func (s *Service) SetItemDiscount(ctx context.Context, id, itemID string, amount decimal.Decimal, kind pricing.DiscountType) (View, error) {
	return s.mutate(ctx, id, "set_item_discount", func(ctx context.Context, st *Store) error {
		st.SetItemDiscount(ctx, itemID, amount, kind)
		return nil
	})
}

// SetInvoiceDiscount updates the cart-wide discount.
func (s *Service) SetInvoiceDiscount(ctx context.Context, id string, amount decimal.Decimal, kind pricing.DiscountType) (View, error) {
	return s.mutate(ctx, id, "set_invoice_discount", func(ctx context.Context, st *Store) error {
		st.SetInvoiceDiscount(ctx, amount, kind)
		return nil
	})
}

// SetCustomer attaches the customer with the given id, or detaches when nil.
func (s *Service) SetCustomer(ctx context.Context, id string, customerID *string) (View, error) {
	var customer *pricing.Customer
	if customerID != nil && strings.TrimSpace(*customerID) != "" {
		if s == nil || s.Customers == nil {
			return View{}, errors.New("customer directory not configured")
		}
		found, ok, err := s.Customers.Lookup(ctx, strings.TrimSpace(*customerID))
		if err != nil {
			return View{}, fmt.Errorf("lookup customer: %w", err)
		}
		if !ok {
			return View{}, ErrUnknownCustomer
		}
		customer = &found
	}
	return s.mutate(ctx, id, "set_customer", func(ctx context.Context, st *Store) error {
		st.SetCustomer(ctx, customer)
		return nil
	})
}

// SetNotes replaces the cart notes.
func (s *Service) SetNotes(ctx context.Context, id, notes string) (View, error) {
	return s.mutate(ctx, id, "set_notes", func(ctx context.Context, st *Store) error {
		st.SetNotes(ctx, notes)
		return nil
	})
}

// Clear empties the cart but keeps it addressable.
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, "clear", func(ctx context.Context, st *Store) error {
		st.Clear(ctx)
		return nil
	})
}

// Delete removes the cart entirely.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.WithCart(ctx, id, func(ctx context.Context, st *Store) error {
		return s.Persister.Delete(ctx, st.Key())
	})
}

func newView(id string, state pricing.Cart) View {
	return View{ID: id, Cart: state, Totals: pricing.Compute(state)}
}
