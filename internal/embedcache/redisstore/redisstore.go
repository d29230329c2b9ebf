// Package redisstore implements the embedding cache store on Redis.
// Each entry is a hash; access bookkeeping is updated by Lua scripts.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/blueberrycongee/recall/internal/embedcache"
)

// Config holds configuration for the Redis store.
type Config struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Namespace    string        `yaml:"namespace"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Namespace:    "recall",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// Store implements embedcache.Store using Redis hashes.
type Store struct {
	client    goredis.UniversalClient
	namespace string
	owned     bool

	touch  *goredis.Script
	upsert *goredis.Script
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Store, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	s := NewFromClient(client, cfg.Namespace)
	s.owned = true
	return s, nil
}

// NewFromClient wraps an existing client. The caller keeps ownership of it.
func NewFromClient(client goredis.UniversalClient, namespace string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
		touch:     goredis.NewScript(touchScript),
		upsert:    goredis.NewScript(upsertScript),
	}
}

func (s *Store) entryKey(key embedcache.Key) string {
	k := "embedding:" + key.String()
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

func (s *Store) countKey() string {
	if s.namespace == "" {
		return "embedding:count"
	}
	return s.namespace + ":embedding:count"
}

// Touch implements embedcache.Store.
func (s *Store) Touch(ctx context.Context, key embedcache.Key, at time.Time) (*embedcache.Entry, error) {
	fields, err := s.touch.Run(ctx, s.client, []string{s.entryKey(key)}, at.UnixMilli()).Slice()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis touch: %w", err)
	}
	return decodeEntry(fields)
}

// Upsert implements embedcache.Store.
func (s *Store) Upsert(ctx context.Context, entry *embedcache.Entry) (*embedcache.Entry, error) {
	vector, err := json.Marshal(entry.Vector)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}

	fields, err := s.upsert.Run(ctx, s.client,
		[]string{s.entryKey(entry.Key()), s.countKey()},
		entry.TextHash,
		entry.Preview,
		string(vector),
		entry.Model,
		entry.AccessCount,
		entry.LastAccessedAt.UnixMilli(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis upsert: %w", err)
	}
	return decodeEntry(fields)
}

// Count implements embedcache.Store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, s.countKey()).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return n, nil
}

// Close implements embedcache.Store. Clients passed to NewFromClient are left open.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// decodeEntry turns a flat HGETALL reply into an Entry.
func decodeEntry(fields []interface{}) (*embedcache.Entry, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("redis: malformed hash reply of length %d", len(fields))
	}
	values := make(map[string]string, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		k, _ := fields[i].(string)   //nolint:errcheck // non-string keys are ignored
		v, _ := fields[i+1].(string) //nolint:errcheck // zero value is acceptable
		values[k] = v
	}

	entry := &embedcache.Entry{
		TextHash: values["text_hash"],
		Preview:  values["text_preview"],
		Model:    values["model"],
	}
	if err := json.Unmarshal([]byte(values["embedding"]), &entry.Vector); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	count, err := strconv.ParseUint(values["access_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode access_count: %w", err)
	}
	entry.AccessCount = count
	lastMs, err := strconv.ParseInt(values["last_accessed"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode last_accessed: %w", err)
	}
	entry.LastAccessedAt = time.UnixMilli(lastMs)
	return entry, nil
}
