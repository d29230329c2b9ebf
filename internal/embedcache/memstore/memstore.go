// Package memstore implements an in-process embedding cache store.
package memstore

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/blueberrycongee/recall/internal/embedcache"
)

// Store keeps cache rows in process memory. Rows never expire.
type Store struct {
	// mu serializes read-modify-write sequences; go-cache only locks single calls.
	mu    sync.Mutex
	items *gocache.Cache
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Touch implements embedcache.Store.
func (s *Store) Touch(_ context.Context, key embedcache.Key, at time.Time) (*embedcache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.load(key)
	if !ok {
		return nil, nil
	}
	entry.AccessCount++
	if at.After(entry.LastAccessedAt) {
		entry.LastAccessedAt = at
	}
	s.items.Set(key.String(), entry, gocache.NoExpiration)
	return clone(entry), nil
}

// Upsert implements embedcache.Store.
func (s *Store) Upsert(_ context.Context, entry *embedcache.Entry) (*embedcache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entry.Key()
	stored := clone(entry)
	if existing, ok := s.load(key); ok {
		stored.AccessCount = existing.AccessCount
		if existing.LastAccessedAt.After(stored.LastAccessedAt) {
			stored.LastAccessedAt = existing.LastAccessedAt
		}
	}
	s.items.Set(key.String(), stored, gocache.NoExpiration)
	return clone(stored), nil
}

// Count implements embedcache.Store.
func (s *Store) Count(context.Context) (int64, error) {
	return int64(s.items.ItemCount()), nil
}

// Close implements embedcache.Store.
func (s *Store) Close() error {
	s.items.Flush()
	return nil
}

func (s *Store) load(key embedcache.Key) (*embedcache.Entry, bool) {
	v, found := s.items.Get(key.String())
	if !found {
		return nil, false
	}
	entry, ok := v.(*embedcache.Entry)
	return entry, ok
}

func clone(e *embedcache.Entry) *embedcache.Entry {
	c := *e
	c.Vector = append([]float64(nil), e.Vector...)
	return &c
}
