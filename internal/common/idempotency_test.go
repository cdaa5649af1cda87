package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
)

func newIdem(t *testing.T) (common.Idem, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return common.Idem{R: rdb, TTL: time.Minute}, mr
}

func TestIdemReplaysStoredResponse(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"invoiceNumber": "INV-2026-000001"}})
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/abc/checkout", nil)
		req.Header.Set("Idempotency-Key", "k-1")
		req = req.WithContext(common.WithOperatorID(req.Context(), "cashier-1"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)
		require.JSONEq(t, `{"data":{"invoiceNumber":"INV-2026-000001"}}`, rr.Body.String())
		if i == 1 {
			require.Equal(t, "true", rr.Header().Get("Idempotent-Replay"))
		}
	}
	require.Equal(t, 1, calls)
}

func TestIdemScopesKeysPerOperator(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))
	for _, operator := range []string{"cashier-1", "cashier-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
		req.Header.Set("Idempotency-Key", "same")
		req = req.WithContext(common.WithOperatorID(req.Context(), operator))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, 2, calls)
}

func TestIdemDoesNotStoreServerErrors(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "boom", nil)
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
		req.Header.Set("Idempotency-Key", "retry-me")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusInternalServerError, rr.Code)
	}
	require.Equal(t, 2, calls)
}

func TestIdemPendingKeyConflicts(t *testing.T) {
	idem, mr := newIdem(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
	req.Header.Set("Idempotency-Key", "busy")

	// occupy the key the way an in-flight request would
	probe := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, k := range mr.Keys() {
			val, err := mr.Get(k)
			require.NoError(t, err)
			require.Equal(t, "pending", val)
		}
		inner := httptest.NewRecorder()
		idem.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("nested request must not run")
		})).ServeHTTP(inner, req.Clone(req.Context()))
		require.Equal(t, http.StatusConflict, inner.Code)
		w.WriteHeader(http.StatusOK)
	}))
	probe.ServeHTTP(httptest.NewRecorder(), req)
}

func TestIdemWithoutHeaderPassesThrough(t *testing.T) {
	idem, mr := newIdem(t)
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, mr.Keys())
}
