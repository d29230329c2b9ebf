// Package embedcache provides a content-addressable store for text embeddings.
// Entries are keyed by the SHA-256 of the exact text bytes plus the embedding
// model, so a repeated (text, model) pair never needs a second provider call.
// Entries are never evicted here; pruning is an operational concern.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

// PreviewLength is the maximum number of characters kept as a text preview.
const PreviewLength = 200

// Key identifies one cache entry.
type Key struct {
	TextHash string // 64 lowercase hex chars
	Model    string
}

// KeyFor derives the cache key for text embedded with model.
// The text is hashed as-is; case and whitespace are not normalized.
func KeyFor(text, model string) Key {
	return Key{TextHash: HashText(text), Model: model}
}

// HashText returns the hex SHA-256 of the exact text bytes.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// String renders the key as model:hash.
func (k Key) String() string {
	return k.Model + ":" + k.TextHash
}

// Entry is one cached embedding together with its access bookkeeping.
type Entry struct {
	TextHash       string    `json:"text_hash"`
	Preview        string    `json:"text_preview"`
	Vector         []float64 `json:"embedding"`
	Model          string    `json:"model"`
	AccessCount    uint64    `json:"access_count"`
	LastAccessedAt time.Time `json:"last_accessed"`
}

// Key returns the entry's cache key.
func (e *Entry) Key() Key {
	return Key{TextHash: e.TextHash, Model: e.Model}
}

// Store persists cache rows. Implementations must make Touch and Upsert
// atomic per key so concurrent hits never lose an access count.
type Store interface {
	// Touch increments access_count, advances last_accessed to at (never
	// backwards) and returns the updated entry. It returns nil, nil when the
	// key is absent.
	Touch(ctx context.Context, key Key, at time.Time) (*Entry, error)

	// Upsert writes entry. A new row starts with the given access count; an
	// existing row keeps its access count and has its vector and preview
	// replaced (last write wins). The stored row is returned.
	Upsert(ctx context.Context, entry *Entry) (*Entry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int64, error)

	// Close releases resources held by the store.
	Close() error
}

// Stats holds cache statistics for monitoring.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Puts    int64   `json:"puts"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength])
}
