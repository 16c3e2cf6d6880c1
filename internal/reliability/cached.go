package reliability

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const weightsKey = "weights"

type cached struct {
	Store
	cache *cache.Cache

	// gen counts applied records. A snapshot read while gen moved may
	// predate the record and is not cached.
	mu  sync.Mutex
	gen uint64
}

// WithCache wraps s so Weights snapshots are served from memory for ttl.
// An applied Record invalidates the snapshot. A non-positive ttl returns s unchanged.
func WithCache(s Store, ttl time.Duration) Store {
	if ttl <= 0 {
		return s
	}
	return &cached{
		Store: s,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *cached) Weights(ctx context.Context) (map[string]float64, error) {
	if v, ok := c.cache.Get(weightsKey); ok {
		return maps.Clone(v.(map[string]float64)), nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	w, err := c.Store.Weights(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.cache.SetDefault(weightsKey, maps.Clone(w))
	}
	c.mu.Unlock()
	return w, nil
}

func (c *cached) Record(ctx context.Context, fb Feedback) (bool, error) {
	applied, err := c.Store.Record(ctx, fb)
	if applied {
		c.mu.Lock()
		c.gen++
		c.cache.Delete(weightsKey)
		c.mu.Unlock()
	}
	return applied, err
}
