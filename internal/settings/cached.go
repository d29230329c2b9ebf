package settings

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long CachedStore keeps a user's settings.
const DefaultCacheTTL = 5 * time.Minute

// CachedStore memoizes another Store for a fixed TTL.
type CachedStore struct {
	next  Store
	items *gocache.Cache
}

// NewCachedStore wraps next. A non-positive ttl means DefaultCacheTTL.
func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		next:  next,
		items: gocache.New(ttl, 2*ttl),
	}
}

// Get implements Store. Errors are not cached.
func (c *CachedStore) Get(ctx context.Context, userID string) (*UserSettings, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if v, ok := c.items.Get(userID); ok {
		return v.(*UserSettings), nil
	}

	u, err := c.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.items.SetDefault(userID, u)
	return u, nil
}

