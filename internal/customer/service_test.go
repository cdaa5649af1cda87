package customer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/customer"
	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
)

type stubQueries struct {
	rows       map[string]dbgen.Customer
	lastSearch string
}

func (s *stubQueries) GetCustomer(_ context.Context, id string) (dbgen.Customer, error) {
	row, ok := s.rows[id]
	if !ok {
		return dbgen.Customer{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *stubQueries) ListCustomers(_ context.Context, arg dbgen.ListCustomersParams) ([]dbgen.Customer, error) {
	s.lastSearch = arg.Search
	out := []dbgen.Customer{}
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

func (s *stubQueries) CreateCustomer(_ context.Context, arg dbgen.CreateCustomerParams) (dbgen.Customer, error) {
	row := dbgen.Customer{ID: uuid.NewString(), Name: arg.Name, Email: arg.Email, Phone: arg.Phone, TaxID: arg.TaxID, CreatedAt: time.Now()}
	s.rows[row.ID] = row
	return row, nil
}

func TestCreateAndLookup(t *testing.T) {
	q := &stubQueries{rows: map[string]dbgen.Customer{}}
	svc := &customer.Service{Q: q}
	ctx := context.Background()

	c, err := svc.Create(ctx, customer.Input{Name: "  Meera ", Email: "Meera@Example.com"})
	require.NoError(t, err)
	require.Equal(t, "Meera", c.Name)
	require.Equal(t, "meera@example.com", c.Email)
	require.True(t, c.TotalSpent.Equal(decimal.Zero))

	ref, ok, err := svc.Lookup(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, c.ID, ref.ID)
	require.Equal(t, "meera@example.com", ref.Email)

	_, ok, err = svc.Lookup(ctx, uuid.NewString())
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = svc.Lookup(ctx, "not-a-uuid")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.Create(ctx, customer.Input{Name: "   "})
	require.ErrorIs(t, err, customer.ErrInvalidInput)
}

func TestHandlers(t *testing.T) {
	q := &stubQueries{rows: map[string]dbgen.Customer{}}
	h := &customer.Handler{Svc: &customer.Service{Q: q}}
	r := chi.NewRouter()
	r.Get("/customers", h.List)
	r.Post("/customers", h.Create)
	r.Get("/customers/{id}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(`{"name":"Arjun","email":"not-an-email"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(`{"name":"Arjun","phone":"98450"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Arjun"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers?q=arj", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "arj", q.lastSearch)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
