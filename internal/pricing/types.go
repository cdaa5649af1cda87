package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount magnitude is interpreted.
type DiscountType string

const (
	// DiscountPercentage interprets the magnitude as a percentage of the discountable base.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed interprets the magnitude as an absolute currency amount.
	DiscountFixed DiscountType = "fixed"
)

// ParseDiscountType maps user input to a DiscountType. Empty input defaults to percentage.
func ParseDiscountType(value string) (DiscountType, bool) {
	switch DiscountType(strings.ToLower(strings.TrimSpace(value))) {
	case "", DiscountPercentage:
		return DiscountPercentage, true
	case DiscountFixed:
		return DiscountFixed, true
	default:
		return "", false
	}
}

// Normalize returns the canonical form of t. Empty means percentage and any
// type other than percentage prices as fixed.
func (t DiscountType) Normalize() DiscountType {
	switch DiscountType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case "", DiscountPercentage:
		return DiscountPercentage
	default:
		return DiscountFixed
	}
}

// Metadata carries display-only catalog fields the calculator never reads.
type Metadata map[string]any

// String returns the string value stored under key.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m Metadata) clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// LineItem is one catalog entry placed in the cart.
type LineItem struct {
	ID               string          `json:"id"`
	Price            decimal.Decimal `json:"price"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	Quantity         int             `json:"quantity"`
	ItemDiscount     decimal.Decimal `json:"itemDiscount"`
	ItemDiscountType DiscountType    `json:"itemDiscountType"`
	Metadata         Metadata        `json:"metadata,omitempty"`
}

// Name returns the display name from the metadata bag.
func (l LineItem) Name() string { return l.Metadata.String("name") }

// SKU returns the stock keeping unit from the metadata bag.
func (l LineItem) SKU() string { return l.Metadata.String("sku") }

func (l LineItem) clone() LineItem {
	l.Metadata = l.Metadata.clone()
	return l
}

// Customer references the buyer attached to a cart.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	TaxID string `json:"taxId,omitempty"`
}

// Cart is the state the calculator reads.
type Cart struct {
	Items               []LineItem      `json:"items"`
	Customer            *Customer       `json:"customer"`
	InvoiceDiscount     decimal.Decimal `json:"invoiceDiscount"`
	InvoiceDiscountType DiscountType    `json:"invoiceDiscountType"`
	Notes               string          `json:"notes"`
}

// NewCart returns an empty cart with default discount settings.
func NewCart() Cart {
	return Cart{Items: []LineItem{}, InvoiceDiscountType: DiscountPercentage}
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]LineItem, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.clone()
	}
	if c.Customer != nil {
		cust := *c.Customer
		out.Customer = &cust
	}
	return out
}

// Find returns the index of the item with the given id or -1.
func (c Cart) Find(id string) int {
	for i, it := range c.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// CatalogItem is a sellable record as supplied by the catalog listing.
type CatalogItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Duration    *int            `json:"duration,omitempty"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// NewLineItem builds a fresh line item for the catalog record: quantity one and
// no item discount.
func NewLineItem(item CatalogItem) LineItem {
	meta := Metadata{"name": item.Name, "sku": item.SKU}
	if item.Description != "" {
		meta["description"] = item.Description
	}
	if item.Type != "" {
		meta["type"] = item.Type
	}
	if item.Category != "" {
		meta["category"] = item.Category
	}
	if item.Duration != nil {
		meta["duration"] = *item.Duration
	}
	return LineItem{
		ID:               item.ID,
		Price:            item.Price,
		TaxRate:          item.TaxRate,
		Quantity:         1,
		ItemDiscount:     decimal.Zero,
		ItemDiscountType: DiscountPercentage,
		Metadata:         meta,
	}
}
