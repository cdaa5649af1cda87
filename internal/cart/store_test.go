package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

func haircut() pricing.CatalogItem {
	minutes := 30
	return pricing.CatalogItem{
		ID:       "svc-haircut",
		Name:     "Haircut",
		SKU:      "HC-01",
		Price:    decimal.RequireFromString("100"),
		TaxRate:  decimal.RequireFromString("18"),
		Duration: &minutes,
		Type:     "service",
		Category: "hair",
	}
}

func shampoo() pricing.CatalogItem {
	return pricing.CatalogItem{
		ID:      "prd-shampoo",
		Name:    "Shampoo",
		SKU:     "SH-02",
		Price:   decimal.RequireFromString("50"),
		TaxRate: decimal.RequireFromString("5"),
		Type:    "product",
	}
}

func newTestStore(t *testing.T, p Persister) *Store {
	t.Helper()
	return NewStore(context.Background(), StoreConfig{Key: Key("t1"), Persister: p, Logger: zerolog.Nop()})
}

func TestStoreAddItemAppendsThenIncrements(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryPersister())

	s.AddItem(ctx, haircut())
	state := s.State()
	require.Len(t, state.Items, 1)
	line := state.Items[0]
	require.Equal(t, 1, line.Quantity)
	require.True(t, line.ItemDiscount.IsZero())
	require.Equal(t, pricing.DiscountPercentage, line.ItemDiscountType)
	require.Equal(t, "Haircut", line.Name())
	require.Equal(t, 30, line.Metadata["duration"])

	s.AddItem(ctx, haircut())
	s.AddItem(ctx, shampoo())
	state = s.State()
	require.Len(t, state.Items, 2)
	require.Equal(t, 2, state.Items[0].Quantity)
	require.Equal(t, "prd-shampoo", state.Items[1].ID)
}

func TestStoreAddItemKeepsDiscountOnIncrement(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, haircut())
	s.SetItemDiscount(ctx, "svc-haircut", decimal.NewFromInt(10), pricing.DiscountPercentage)
	s.AddItem(ctx, haircut())

	line := s.State().Items[0]
	require.Equal(t, 2, line.Quantity)
	require.True(t, line.ItemDiscount.Equal(decimal.NewFromInt(10)))
}

func TestStoreSetQuantityZeroEqualsRemove(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t, nil)
	b := newTestStore(t, nil)
	for _, s := range []*Store{a, b} {
		s.AddItem(ctx, haircut())
		s.AddItem(ctx, shampoo())
	}
	a.SetQuantity(ctx, "svc-haircut", 0)
	b.RemoveItem(ctx, "svc-haircut")
	require.Equal(t, b.State(), a.State())

	a.SetQuantity(ctx, "prd-shampoo", -3)
	require.Empty(t, a.State().Items)
}

func TestStoreSetQuantityUpdatesLine(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, haircut())
	s.SetQuantity(ctx, "svc-haircut", 4)
	require.Equal(t, 4, s.State().Items[0].Quantity)
	require.True(t, s.Totals().Subtotal.Equal(decimal.NewFromInt(400)))
}

func TestStoreUnknownItemIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, haircut())
	before := s.State()

	s.RemoveItem(ctx, "missing")
	s.SetQuantity(ctx, "missing", 3)
	s.SetItemDiscount(ctx, "missing", decimal.NewFromInt(5), pricing.DiscountFixed)
	require.Equal(t, before, s.State())
}

func TestStoreDiscountAmountsAreNotRangeChecked(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, haircut())
	s.SetItemDiscount(ctx, "svc-haircut", decimal.NewFromInt(150), "")
	s.SetInvoiceDiscount(ctx, decimal.NewFromInt(-5), pricing.DiscountFixed)

	state := s.State()
	require.True(t, state.Items[0].ItemDiscount.Equal(decimal.NewFromInt(150)))
	require.Equal(t, pricing.DiscountPercentage, state.Items[0].ItemDiscountType)
	require.True(t, state.InvoiceDiscount.Equal(decimal.NewFromInt(-5)))
	require.Equal(t, pricing.DiscountFixed, state.InvoiceDiscountType)
}

func TestStoreCustomerAndNotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	cust := &pricing.Customer{ID: "c-1", Name: "Asha"}
	s.SetCustomer(ctx, cust)
	cust.Name = "mutated"
	s.SetNotes(ctx, "walk-in")

	state := s.State()
	require.NotNil(t, state.Customer)
	require.Equal(t, "Asha", state.Customer.Name)
	require.Equal(t, "walk-in", state.Notes)

	s.SetCustomer(ctx, nil)
	require.Nil(t, s.State().Customer)
}

func TestStoreClearResetsEverything(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, haircut())
	s.SetInvoiceDiscount(ctx, decimal.NewFromInt(10), pricing.DiscountFixed)
	s.SetCustomer(ctx, &pricing.Customer{ID: "c-1"})
	s.SetNotes(ctx, "note")
	s.Clear(ctx)

	require.Equal(t, pricing.NewCart(), s.State())
}

func TestStoreRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	first := newTestStore(t, p)
	first.AddItem(ctx, haircut())
	first.AddItem(ctx, haircut())
	first.SetInvoiceDiscount(ctx, decimal.NewFromInt(10), pricing.DiscountPercentage)
	first.SetNotes(ctx, "regular")

	second := newTestStore(t, p)
	want, err := json.Marshal(first.State())
	require.NoError(t, err)
	got, err := json.Marshal(second.State())
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
	require.True(t, second.Totals().Total.Equal(first.Totals().Total))
}

func TestStoreCanonicalisesDiscountTypes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, haircut())
	s.SetItemDiscount(ctx, "svc-haircut", decimal.NewFromInt(10), "Fixed")
	s.SetInvoiceDiscount(ctx, decimal.NewFromInt(10), " PERCENTAGE ")

	state := s.State()
	require.Equal(t, pricing.DiscountFixed, state.Items[0].ItemDiscountType)
	require.Equal(t, pricing.DiscountPercentage, state.InvoiceDiscountType)

	totals := s.Totals()
	require.True(t, totals.Items[0].ItemDiscountAmount.Equal(decimal.NewFromInt(10)), totals.Items[0].ItemDiscountAmount.String())
	require.True(t, totals.InvoiceDiscountAmount.Equal(decimal.NewFromInt(9)), totals.InvoiceDiscountAmount.String())
}

func TestStoreRepairsRestoredState(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	broken := pricing.Cart{Items: []pricing.LineItem{
		{ID: "a", Price: decimal.NewFromInt(10), Quantity: 1},
		{ID: "a", Price: decimal.NewFromInt(10), Quantity: 2},
		{ID: "b", Price: decimal.NewFromInt(5), Quantity: 0},
		{ID: "c", Price: decimal.NewFromInt(5), Quantity: 1, ItemDiscountType: "flat"},
	}}
	require.NoError(t, p.Save(ctx, Key("t1"), broken))

	state := newTestStore(t, p).State()
	require.Len(t, state.Items, 2)
	require.Equal(t, 3, state.Items[0].Quantity)
	require.Equal(t, pricing.DiscountPercentage, state.Items[0].ItemDiscountType)
	require.Equal(t, pricing.DiscountFixed, state.Items[1].ItemDiscountType)
	require.Equal(t, pricing.DiscountPercentage, state.InvoiceDiscountType)
}

type failingPersister struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingPersister) Load(context.Context, string) (pricing.Cart, bool, error) {
	return pricing.Cart{}, false, f.loadErr
}

func (f *failingPersister) Save(context.Context, string, pricing.Cart) error {
	f.saves++
	return f.saveErr
}

func (f *failingPersister) Delete(context.Context, string) error { return nil }

func TestStoreToleratesPersistenceFailures(t *testing.T) {
	ctx := context.Background()
	p := &failingPersister{loadErr: errors.New("unavailable"), saveErr: errors.New("quota exceeded")}
	s := newTestStore(t, p)
	require.Equal(t, pricing.NewCart(), s.State())

	s.AddItem(ctx, haircut())
	s.SetQuantity(ctx, "svc-haircut", 2)
	require.Equal(t, 2, p.saves)
	require.Equal(t, 2, s.State().Items[0].Quantity)
}

func TestStoreStateIsACopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.AddItem(ctx, haircut())
	state := s.State()
	state.Items[0].Quantity = 99
	state.Items[0].Metadata["name"] = "changed"
	require.Equal(t, 1, s.State().Items[0].Quantity)
	require.Equal(t, "Haircut", s.State().Items[0].Name())
}

func TestParseDiscountType(t *testing.T) {
	cases := map[string]struct {
		want pricing.DiscountType
		ok   bool
	}{
		"":           {pricing.DiscountPercentage, true},
		"percentage": {pricing.DiscountPercentage, true},
		" Fixed ":    {pricing.DiscountFixed, true},
		"bogus":      {"", false},
	}
	for in, tc := range cases {
		got, ok := pricing.ParseDiscountType(in)
		require.Equal(t, tc.ok, ok, in)
		require.Equal(t, tc.want, got, in)
	}
}
