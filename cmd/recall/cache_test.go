package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/recall/internal/config"
	"github.com/blueberrycongee/recall/internal/embedcache"
)

func TestOpenCacheStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  func() config.CacheConfig
	}{
		{"memory", func() config.CacheConfig {
			return config.CacheConfig{Backend: config.BackendMemory}
		}},
		{"sqlite", func() config.CacheConfig {
			return config.CacheConfig{
				Backend: config.BackendSQLite,
				SQL:     config.SQLConfig{DSN: filepath.Join(t.TempDir(), "cache.db"), Table: "embedding_cache"},
			}
		}},
		{"redis", func() config.CacheConfig {
			return config.CacheConfig{
				Backend: config.BackendRedis,
				Redis:   config.RedisConfig{Addr: mr.Addr(), Namespace: "test"},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := openCacheStore(ctx, tt.cfg())
			require.NoError(t, err)

			cache, err := embedcache.New(store)
			require.NoError(t, err)
			defer func() { _ = cache.Close() }()

			_, err = cache.Put(ctx, "hello", "m", []float64{1, 2})
			require.NoError(t, err)
			entry, err := cache.Get(ctx, "hello", "m")
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, []float64{1, 2}, entry.Vector)
			assert.EqualValues(t, 1, entry.AccessCount)
		})
	}
}

func TestOpenCacheStore_Unknown(t *testing.T) {
	_, err := openCacheStore(context.Background(), config.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
