package cart

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// StoreName is the fixed prefix under which cart state is persisted.
const StoreName = "pos-store"

// Store owns the state of a single cart. Every mutation keeps the line item
// invariants (unique ids, quantity >= 1) and saves the new state through the
// Persister. Persistence is best effort: failures are logged, never returned.
type Store struct {
	mu      sync.Mutex
	key     string
	state   pricing.Cart
	persist Persister
	log     zerolog.Logger
}

// StoreConfig groups Store dependencies.
type StoreConfig struct {
	Key       string
	Persister Persister
	Logger    zerolog.Logger
}

// NewStore creates a store for the key, restoring any persisted state.
func NewStore(ctx context.Context, cfg StoreConfig) *Store {
	s := &Store{
		key:     cfg.Key,
		state:   pricing.NewCart(),
		persist: cfg.Persister,
		log:     cfg.Logger,
	}
	if s.persist == nil {
		return s
	}
	state, ok, err := s.persist.Load(ctx, s.key)
	if err != nil {
		s.log.Warn().Err(err).Str("cart_key", s.key).Msg("restore cart state")
		return s
	}
	if ok {
		s.state = normalize(state)
	}
	return s
}

// Key returns the persistence key of the store.
func (s *Store) Key() string { return s.key }

// State returns a copy of the current cart state.
func (s *Store) State() pricing.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Totals computes the breakdown for the current state.
func (s *Store) Totals() pricing.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Compute(s.state)
}

// AddItem increments the quantity of an existing line or appends a new one.
func (s *Store) AddItem(ctx context.Context, item pricing.CatalogItem) {
	s.update(ctx, func(c *pricing.Cart) {
		if idx := c.Find(item.ID); idx >= 0 {
			c.Items[idx].Quantity++
			return
		}
		c.Items = append(c.Items, pricing.NewLineItem(item))
	})
}

// RemoveItem drops the line with the given id. Unknown ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.update(ctx, func(c *pricing.Cart) {
		removeLine(c, id)
	})
}

// SetQuantity sets the quantity of a line; a quantity of zero or less removes it.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, id)
		return
	}
	s.update(ctx, func(c *pricing.Cart) {
		if idx := c.Find(id); idx >= 0 {
			c.Items[idx].Quantity = quantity
		}
	})
}

// SetItemDiscount sets the discount of a line. The amount is not range checked.
func (s *Store) SetItemDiscount(ctx context.Context, id string, amount decimal.Decimal, kind pricing.DiscountType) {
	kind = kind.Normalize()
	s.update(ctx, func(c *pricing.Cart) {
		if idx := c.Find(id); idx >= 0 {
			c.Items[idx].ItemDiscount = amount
			c.Items[idx].ItemDiscountType = kind
		}
	})
}

// SetInvoiceDiscount sets the cart-wide discount.
func (s *Store) SetInvoiceDiscount(ctx context.Context, amount decimal.Decimal, kind pricing.DiscountType) {
	kind = kind.Normalize()
	s.update(ctx, func(c *pricing.Cart) {
		c.InvoiceDiscount = amount
		c.InvoiceDiscountType = kind
	})
}

// SetCustomer attaches a customer; nil detaches it.
func (s *Store) SetCustomer(ctx context.Context, customer *pricing.Customer) {
	s.update(ctx, func(c *pricing.Cart) {
		if customer == nil {
			c.Customer = nil
			return
		}
		cust := *customer
		c.Customer = &cust
	})
}

// SetNotes replaces the free-text notes.
func (s *Store) SetNotes(ctx context.Context, notes string) {
	s.update(ctx, func(c *pricing.Cart) {
		c.Notes = notes
	})
}

// Clear resets the cart to its empty state.
func (s *Store) Clear(ctx context.Context) {
	s.update(ctx, func(c *pricing.Cart) {
		*c = pricing.NewCart()
	})
}

func (s *Store) update(ctx context.Context, fn func(*pricing.Cart)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.save(ctx, snapshot)
}

func (s *Store) save(ctx context.Context, state pricing.Cart) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(ctx, s.key, state); err != nil {
		if obs.CartPersistFailures != nil {
			obs.CartPersistFailures.Inc()
		}
		s.log.Warn().Err(err).Str("cart_key", s.key).Msg("persist cart state")
	}
}

func removeLine(c *pricing.Cart, id string) {
	out := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	c.Items = out
}

// normalize repairs restored state that violates line item invariants.
func normalize(c pricing.Cart) pricing.Cart {
	if c.Items == nil {
		c.Items = []pricing.LineItem{}
	}
	c.InvoiceDiscountType = c.InvoiceDiscountType.Normalize()
	seen := make(map[string]int, len(c.Items))
	items := make([]pricing.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Quantity <= 0 {
			continue
		}
		it.ItemDiscountType = it.ItemDiscountType.Normalize()
		if idx, ok := seen[it.ID]; ok {
			items[idx].Quantity += it.Quantity
			continue
		}
		seen[it.ID] = len(items)
		items = append(items, it)
	}
	c.Items = items
	return c
}
