package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:checkout:"},
		Config: Config{
			Key:    func(*http.Request) string { return "static" },
			Window: time.Second,
			Max:    1,
		},
	}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/c1/checkout", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, "0", rr1.Header().Get("X-RateLimit-Remaining"))

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &body))
	require.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestHandlerMiddlewareOnErrorFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	called := false
	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:"},
		Config: Config{
			Key:    func(*http.Request) string { return "err" },
			Window: time.Second,
			Max:    1,
		},
		OnError: func(error) { called = true },
	}

	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestHandlerMiddlewareWithFixedWindowStore(t *testing.T) {
	handler := Handler{
		Limiter: FixedWindow{Store: NewMemoryStore("rl:api:")},
		Config:  Config{Key: ByClientIP("api:"), Window: time.Minute, Max: 2},
	}
	limited := handler.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/items", nil)
		req.RemoteAddr = "10.0.0.7:5123"
		rr := httptest.NewRecorder()
		limited.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/items", nil)
	other.RemoteAddr = "10.0.0.8:5123"
	rr := httptest.NewRecorder()
	limited.ServeHTTP(rr, other)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestFixedWindowRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client, "rl:api")
	require.NoError(t, err)
	fw := FixedWindow{Store: store}

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	allowed, remaining, _, err := fw.Allow(ctx, "k", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)

	_, _, _, err = fw.Allow(ctx, "k", time.Minute, 2)
	require.NoError(t, err)
	allowed, remaining, _, err = fw.Allow(ctx, "k", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 0, remaining)
}

func TestByOperatorKeys(t *testing.T) {
	key := ByOperator("checkout:")

	anon := httptest.NewRequest(http.MethodPost, "/", nil)
	anon.RemoteAddr = "192.0.2.1:9999"
	require.Equal(t, "checkout:ip:192.0.2.1", key(anon))

	authed := anon.WithContext(common.WithOperatorID(anon.Context(), "op-1"))
	require.Equal(t, "checkout:op:op-1", key(authed))
}
