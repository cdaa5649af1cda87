package session_test

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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/session"
)

type memQueries struct {
	rows      map[string]dbgen.CashSession
	createErr error
}

func newMemQueries() *memQueries {
	return &memQueries{rows: map[string]dbgen.CashSession{}}
}

func (m *memQueries) CreateCashSession(_ context.Context, operatorID, openingCash string) (dbgen.CashSession, error) {
	if m.createErr != nil {
		return dbgen.CashSession{}, m.createErr
	}
	row := dbgen.CashSession{
		ID:          uuid.NewString(),
		OperatorID:  operatorID,
		Status:      session.StatusOpen,
		OpeningCash: decimal.RequireFromString(openingCash),
		TotalSales:  decimal.Zero,
		OpenedAt:    time.Now(),
	}
	m.rows[row.ID] = row
	return row, nil
}

func (m *memQueries) GetCashSession(_ context.Context, id string) (dbgen.CashSession, error) {
	row, ok := m.rows[id]
	if !ok {
		return dbgen.CashSession{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *memQueries) GetOpenCashSession(_ context.Context, operatorID string) (dbgen.CashSession, error) {
	for _, row := range m.rows {
		if row.OperatorID == operatorID && row.Status == session.StatusOpen {
			return row, nil
		}
	}
	return dbgen.CashSession{}, pgx.ErrNoRows
}

func (m *memQueries) CloseCashSession(_ context.Context, id, closingCash string) (dbgen.CashSession, error) {
	row, ok := m.rows[id]
	if !ok || row.Status != session.StatusOpen {
		return dbgen.CashSession{}, pgx.ErrNoRows
	}
	closing := decimal.RequireFromString(closingCash)
	expected := row.OpeningCash.Add(row.TotalSales)
	variance := closing.Sub(expected)
	now := time.Now()
	row.Status = session.StatusClosed
	row.ClosingCash = &closing
	row.ExpectedCash = &expected
	row.Variance = &variance
	row.ClosedAt = &now
	m.rows[id] = row
	return row, nil
}

func (m *memQueries) RecordCashSessionSale(_ context.Context, id, amount string) (dbgen.CashSession, error) {
	row, ok := m.rows[id]
	if !ok || row.Status != session.StatusOpen {
		return dbgen.CashSession{}, pgx.ErrNoRows
	}
	row.TotalSales = row.TotalSales.Add(decimal.RequireFromString(amount))
	row.InvoiceCount++
	m.rows[id] = row
	return row, nil
}

func (m *memQueries) ListCashSessions(_ context.Context, arg dbgen.ListCashSessionsParams) ([]dbgen.CashSession, error) {
	out := []dbgen.CashSession{}
	for _, row := range m.rows {
		if arg.OperatorID == "" || row.OperatorID == arg.OperatorID {
			out = append(out, row)
		}
	}
	return out, nil
}

type captureEmitter struct {
	topics []string
}

func (c *captureEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (dbgen.DomainEvent, error) {
	c.topics = append(c.topics, topic)
	return dbgen.DomainEvent{ID: uuid.NewString(), Topic: topic, AggregateID: aggregateID}, nil
}

func TestSessionLifecycle(t *testing.T) {
	q := newMemQueries()
	emitter := &captureEmitter{}
	svc := &session.Service{Q: q, Events: emitter}
	ctx := context.Background()

	opened, err := svc.Open(ctx, "op-1", decimal.RequireFromString("500"))
	require.NoError(t, err)
	require.Equal(t, session.StatusOpen, opened.Status)

	_, err = svc.Open(ctx, "op-1", decimal.Zero)
	require.ErrorIs(t, err, session.ErrSessionAlreadyOpen)

	active, err := svc.Active(ctx, "op-1")
	require.NoError(t, err)
	require.Equal(t, opened.ID, active.ID)

	_, err = session.RecordSale(ctx, q, opened.ID, decimal.RequireFromString("153.45"))
	require.NoError(t, err)
	booked, err := session.RecordSale(ctx, q, opened.ID, decimal.RequireFromString("46.55"))
	require.NoError(t, err)
	require.Equal(t, 2, booked.InvoiceCount)

	closed, err := svc.Close(ctx, opened.ID, "op-1", decimal.RequireFromString("690"))
	require.NoError(t, err)
	require.Equal(t, session.StatusClosed, closed.Status)
	require.True(t, closed.ExpectedCash.Equal(decimal.RequireFromString("700")))
	require.True(t, closed.Variance.Equal(decimal.RequireFromString("-10")))

	_, err = svc.Close(ctx, opened.ID, "op-1", decimal.Zero)
	require.ErrorIs(t, err, session.ErrSessionNotOpen)
	_, err = session.RecordSale(ctx, q, opened.ID, decimal.NewFromInt(1))
	require.ErrorIs(t, err, session.ErrSessionNotOpen)

	_, err = svc.Active(ctx, "op-1")
	require.ErrorIs(t, err, session.ErrNotFound)

	require.Equal(t, []string{"session.opened", "session.closed"}, emitter.topics)
}

func TestCloseRejectsOtherOperator(t *testing.T) {
	q := newMemQueries()
	svc := &session.Service{Q: q}
	ctx := context.Background()

	opened, err := svc.Open(ctx, "op-1", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = svc.Close(ctx, opened.ID, "op-2", decimal.Zero)
	require.ErrorIs(t, err, session.ErrNotOwner)
	require.Equal(t, session.StatusOpen, q.rows[opened.ID].Status)
}

func TestForSale(t *testing.T) {
	q := newMemQueries()
	svc := &session.Service{Q: q}
	ctx := context.Background()

	mine, err := svc.Open(ctx, "op-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	theirs, err := svc.Open(ctx, "op-2", decimal.NewFromInt(100))
	require.NoError(t, err)

	id, err := session.ForSale(ctx, q, "", "op-1")
	require.NoError(t, err)
	require.Equal(t, mine.ID, *id)

	id, err = session.ForSale(ctx, q, mine.ID, "op-1")
	require.NoError(t, err)
	require.Equal(t, mine.ID, *id)

	_, err = session.ForSale(ctx, q, theirs.ID, "op-1")
	require.ErrorIs(t, err, session.ErrNotOwner)
	require.True(t, q.rows[theirs.ID].TotalSales.IsZero())

	_, err = session.ForSale(ctx, q, uuid.NewString(), "op-1")
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = session.ForSale(ctx, q, "bogus", "op-1")
	require.ErrorIs(t, err, session.ErrNotFound)

	id, err = session.ForSale(ctx, q, "", "op-3")
	require.NoError(t, err)
	require.Nil(t, id)

	_, err = svc.Close(ctx, mine.ID, "op-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = session.ForSale(ctx, q, mine.ID, "op-1")
	require.ErrorIs(t, err, session.ErrSessionNotOpen)
}

func TestOpenValidation(t *testing.T) {
	q := newMemQueries()
	svc := &session.Service{Q: q}
	ctx := context.Background()

	_, err := svc.Open(ctx, " ", decimal.Zero)
	require.ErrorIs(t, err, session.ErrInvalidInput)
	_, err = svc.Open(ctx, "op-1", decimal.NewFromInt(-1))
	require.ErrorIs(t, err, session.ErrInvalidInput)

	q.createErr = &pgconn.PgError{Code: "23505"}
	_, err = svc.Open(ctx, "op-2", decimal.Zero)
	require.ErrorIs(t, err, session.ErrSessionAlreadyOpen)

	_, err = svc.Close(ctx, "not-a-uuid", "op-1", decimal.Zero)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestHandlers(t *testing.T) {
	q := newMemQueries()
	h := &session.Handler{Svc: &session.Service{Q: q}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if op := req.Header.Get("X-Test-Operator"); op != "" {
				req = req.WithContext(common.WithOperatorID(req.Context(), op))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/sessions", h.Routes)

	do := func(method, path, body, operator string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		if operator != "" {
			req.Header.Set("X-Test-Operator", operator)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/sessions", `{"amount":"100"}`, "").Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/sessions", `{}`, "op-1").Code)

	rec := do(http.MethodPost, "/sessions", `{"amount":"100"}`, "op-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusConflict, do(http.MethodPost, "/sessions", `{"amount":"100"}`, "op-1").Code)

	rec = do(http.MethodGet, "/sessions/active", "", "op-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"operatorId":"op-1"`)

	var id string
	for k := range q.rows {
		id = k
	}
	require.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/sessions/"+id+"/close", `{"amount":"100"}`, "").Code)
	rec = do(http.MethodPost, "/sessions/"+id+"/close", `{"amount":"100"}`, "op-2")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "FORBIDDEN")

	rec = do(http.MethodPost, "/sessions/"+id+"/close", `{"amount":"100"}`, "op-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"variance":"0"`)
	require.Equal(t, http.StatusConflict, do(http.MethodPost, "/sessions/"+id+"/close", `{"amount":"100"}`, "op-1").Code)

	rec = do(http.MethodGet, "/sessions?operator=op-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusNotFound, do(http.MethodGet, "/sessions/"+uuid.NewString(), "", "").Code)
}
