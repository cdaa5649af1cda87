package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Persister saves and restores cart state.
type Persister interface {
	Load(ctx context.Context, key string) (pricing.Cart, bool, error)
	Save(ctx context.Context, key string, state pricing.Cart) error
	Delete(ctx context.Context, key string) error
}

// Key returns the persistence key for a cart id.
func Key(cartID string) string {
	return StoreName + ":" + cartID
}

// RedisPersister stores cart state as JSON in Redis with a sliding TTL.
type RedisPersister struct {
	R   *redis.Client
	TTL time.Duration
}

func (p RedisPersister) ttl() time.Duration {
	if p.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return p.TTL
}

// Load implements Persister.
func (p RedisPersister) Load(ctx context.Context, key string) (pricing.Cart, bool, error) {
	if p.R == nil {
		return pricing.Cart{}, false, errors.New("cart: redis client not configured")
	}
	data, err := p.R.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pricing.Cart{}, false, nil
		}
		return pricing.Cart{}, false, err
	}
	var state pricing.Cart
	if err := json.Unmarshal(data, &state); err != nil {
		return pricing.Cart{}, false, err
	}
	return state, true, nil
}

// Save implements Persister.
func (p RedisPersister) Save(ctx context.Context, key string, state pricing.Cart) error {
	if p.R == nil {
		return errors.New("cart: redis client not configured")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.R.Set(ctx, key, data, p.ttl()).Err()
}

// Delete implements Persister.
func (p RedisPersister) Delete(ctx context.Context, key string) error {
	if p.R == nil {
		return errors.New("cart: redis client not configured")
	}
	return p.R.Del(ctx, key).Err()
}

// MemoryPersister keeps cart state in process memory. State is stored encoded
// so callers never share references with the persisted copy.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryPersister constructs an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

// Load implements Persister.
func (p *MemoryPersister) Load(_ context.Context, key string) (pricing.Cart, bool, error) {
	p.mu.RLock()
	raw, ok := p.data[key]
	p.mu.RUnlock()
	if !ok {
		return pricing.Cart{}, false, nil
	}
	var state pricing.Cart
	if err := json.Unmarshal(raw, &state); err != nil {
		return pricing.Cart{}, false, err
	}
	return state, true, nil
}

// Save implements Persister.
func (p *MemoryPersister) Save(_ context.Context, key string, state pricing.Cart) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		p.data = make(map[string][]byte)
	}
	p.data[key] = raw
	return nil
}

// Delete implements Persister.
func (p *MemoryPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}
