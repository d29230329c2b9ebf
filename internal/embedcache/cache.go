package embedcache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/blueberrycongee/recall/internal/metrics"
)

// Cache is the content-addressable embedding cache.
type Cache struct {
	store Store
	now   func() time.Time

	// Statistics
	hits   atomic.Int64
	misses atomic.Int64
	puts   atomic.Int64
	errors atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for access timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache on top of store.
func New(store Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("embedcache: store is required")
	}
	c := &Cache{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the entry for (text, model), or nil on a miss.
// A hit is always recorded: the read and the access bump are one store operation.
func (c *Cache) Get(ctx context.Context, text, model string) (*Entry, error) {
	entry, err := c.Touch(ctx, KeyFor(text, model))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		c.misses.Add(1)
		metrics.EmbeddingCacheRequests.WithLabelValues(metrics.ResultMiss).Inc()
		return nil, nil
	}
	c.hits.Add(1)
	metrics.EmbeddingCacheRequests.WithLabelValues(metrics.ResultHit).Inc()
	return entry, nil
}

// Put stores vector as the embedding of text under model and returns the stored entry.
func (c *Cache) Put(ctx context.Context, text, model string, vector []float64) (*Entry, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedcache: refusing to store empty vector")
	}
	entry := &Entry{
		TextHash:       HashText(text),
		Preview:        preview(text),
		Vector:         vector,
		Model:          model,
		LastAccessedAt: c.now(),
	}
	stored, err := c.store.Upsert(ctx, entry)
	if err != nil {
		c.errors.Add(1)
		return nil, fmt.Errorf("embedcache: put %s: %w", entry.Key(), err)
	}
	c.puts.Add(1)
	return stored, nil
}

// Touch bumps the access count and last access time of key.
// It returns nil, nil when the key is not cached.
func (c *Cache) Touch(ctx context.Context, key Key) (*Entry, error) {
	entry, err := c.store.Touch(ctx, key, c.now())
	if err != nil {
		c.errors.Add(1)
		return nil, fmt.Errorf("embedcache: touch %s: %w", key, err)
	}
	return entry, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int64, error) {
	return c.store.Count(ctx)
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Puts:    c.puts.Load(),
		Errors:  c.errors.Load(),
		HitRate: hitRate,
	}
}
