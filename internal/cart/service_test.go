package cart_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

type stubCatalog map[string]pricing.CatalogItem

func (s stubCatalog) Lookup(_ context.Context, id string) (pricing.CatalogItem, bool, error) {
	item, ok := s[id]
	return item, ok, nil
}

type stubCustomers map[string]pricing.Customer

func (s stubCustomers) Lookup(_ context.Context, id string) (pricing.Customer, bool, error) {
	c, ok := s[id]
	return c, ok, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{
		"a": {ID: "a", Name: "Facial", SKU: "FC", Price: decimal.NewFromInt(100), TaxRate: decimal.NewFromInt(18)},
		"b": {ID: "b", Name: "Serum", SKU: "SR", Price: decimal.NewFromInt(50), TaxRate: decimal.NewFromInt(5)},
	}
}

func newService(p cart.Persister) *cart.Service {
	return &cart.Service{
		Persister: p,
		Locker:    lock.NewLocal(),
		Catalog:   testCatalog(),
		Customers: stubCustomers{"c-1": {ID: "c-1", Name: "Ravi", Email: "ravi@example.com"}},
		Logger:    zerolog.Nop(),
	}
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(cart.NewMemoryPersister())

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Empty(t, created.Items)

	_, err = svc.AddItem(ctx, created.ID, "a")
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, created.ID, "b")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	view, err = svc.SetInvoiceDiscount(ctx, created.ID, decimal.NewFromInt(10), pricing.DiscountPercentage)
	require.NoError(t, err)
	require.True(t, view.Totals.TaxTotal.Equal(decimal.RequireFromString("18.45")))
	require.True(t, view.Totals.Total.Equal(decimal.RequireFromString("153.45")))

	customerID := "c-1"
	view, err = svc.SetCustomer(ctx, created.ID, &customerID)
	require.NoError(t, err)
	require.Equal(t, "Ravi", view.Customer.Name)

	view, err = svc.SetNotes(ctx, created.ID, "birthday")
	require.NoError(t, err)
	require.Equal(t, "birthday", view.Notes)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, got.Totals.Total.Equal(view.Totals.Total))
	require.Equal(t, "birthday", got.Notes)

	view, err = svc.Clear(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.Nil(t, view.Customer)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestServiceUnknownReferences(t *testing.T) {
	ctx := context.Background()
	svc := newService(cart.NewMemoryPersister())
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, created.ID, "zzz")
	require.ErrorIs(t, err, cart.ErrUnknownItem)

	missing := "c-404"
	_, err = svc.SetCustomer(ctx, created.ID, &missing)
	require.ErrorIs(t, err, cart.ErrUnknownCustomer)

	_, err = svc.AddItem(ctx, "no-such-cart", "a")
	require.ErrorIs(t, err, cart.ErrNotFound)

	_, err = svc.SetNotes(ctx, " ", "x")
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestServiceSetCustomerNilDetaches(t *testing.T) {
	ctx := context.Background()
	svc := newService(cart.NewMemoryPersister())
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	id := "c-1"
	_, err = svc.SetCustomer(ctx, created.ID, &id)
	require.NoError(t, err)

	view, err := svc.SetCustomer(ctx, created.ID, nil)
	require.NoError(t, err)
	require.Nil(t, view.Customer)
}

func TestServiceConcurrentAddsAreSerialised(t *testing.T) {
	ctx := context.Background()
	svc := newService(cart.NewMemoryPersister())
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, created.ID, "a"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	view, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, workers, view.Items[0].Quantity)
}

func TestServiceWithRedisPersisterAndLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	svc := newService(cart.RedisPersister{R: rdb, TTL: time.Hour})
	svc.Locker = lock.Redis{R: rdb, RetryBackoff: 5 * time.Millisecond}

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, "a")
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, created.ID, "a", 3)
	require.NoError(t, err)

	key := cart.Key(created.ID)
	require.Equal(t, "pos-store:"+created.ID, key)
	require.True(t, mr.Exists(key))
	require.Equal(t, time.Hour, mr.TTL(key))
	require.False(t, mr.Exists("lock:"+key))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	var persisted pricing.Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.Len(t, persisted.Items, 1)
	require.Equal(t, 3, persisted.Items[0].Quantity)
	require.Equal(t, "Facial", persisted.Items[0].Name())

	view, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, view.Totals.Total.Equal(decimal.NewFromInt(354)))
}
