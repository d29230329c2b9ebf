package main

import (
	"context"
	"fmt"

	"github.com/blueberrycongee/recall/internal/config"
	"github.com/blueberrycongee/recall/internal/embedcache"
	"github.com/blueberrycongee/recall/internal/embedcache/memstore"
	"github.com/blueberrycongee/recall/internal/embedcache/redisstore"
	"github.com/blueberrycongee/recall/internal/embedcache/sqlstore"
)

// openCacheStore opens the configured embedding cache backend.
func openCacheStore(ctx context.Context, cfg config.CacheConfig) (embedcache.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memstore.New(), nil

	case config.BackendRedis:
		rc := redisstore.DefaultConfig()
		rc.Addr = cfg.Redis.Addr
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		if cfg.Redis.Namespace != "" {
			rc.Namespace = cfg.Redis.Namespace
		}
		if cfg.Redis.PoolSize > 0 {
			rc.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.DialTimeout > 0 {
			rc.DialTimeout = cfg.Redis.DialTimeout
		}
		if cfg.Redis.ReadTimeout > 0 {
			rc.ReadTimeout = cfg.Redis.ReadTimeout
		}
		if cfg.Redis.WriteTimeout > 0 {
			rc.WriteTimeout = cfg.Redis.WriteTimeout
		}
		return redisstore.New(rc)

	case config.BackendSQLite, config.BackendPostgres:
		return sqlstore.Open(ctx, sqlstore.Config{
			Dialect:      cfg.Backend,
			DSN:          cfg.SQL.DSN,
			Table:        cfg.SQL.Table,
			MaxOpenConns: cfg.SQL.MaxOpenConns,
			MaxIdleConns: cfg.SQL.MaxIdleConns,
			ConnLifetime: cfg.SQL.ConnLifetime,
		})

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
