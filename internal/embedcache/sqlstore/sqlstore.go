// Package sqlstore implements the embedding cache store on a SQL database.
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/blueberrycongee/recall/internal/embedcache"
	"github.com/blueberrycongee/recall/internal/metrics"
)

// DefaultTable is the table used when Config.Table is empty.
const DefaultTable = "embedding_cache"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config contains SQL store settings.
type Config struct {
	Dialect      string        `yaml:"dialect"`
	DSN          string        `yaml:"dsn"`
	Table        string        `yaml:"table"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// Store implements embedcache.Store on database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect

	touchSQL  string
	upsertSQL string
	countSQL  string
}

// Open opens the database described by cfg and creates the cache table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := DialectByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	db, err := sql.Open(dialect.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect.Name == SQLite.Name {
		// SQLite serializes writers; one connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := New(ctx, db, dialect, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and ensures the cache table exists.
func New(ctx context.Context, db *sql.DB, dialect Dialect, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("sqlstore: invalid table name %q", table)
	}

	if _, err := db.ExecContext(ctx, dialect.createTable(table)); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	return &Store{
		db:        db,
		dialect:   dialect,
		touchSQL:  dialect.touchQuery(table),
		upsertSQL: dialect.upsertQuery(table),
		countSQL:  dialect.countQuery(table),
	}, nil
}

// Touch implements embedcache.Store.
func (s *Store) Touch(ctx context.Context, key embedcache.Key, at time.Time) (*embedcache.Entry, error) {
	row := s.db.QueryRowContext(ctx, s.touchSQL, at.UnixMilli(), key.TextHash, key.Model)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("touch entry: %w", err)
	}
	return entry, nil
}

// Upsert implements embedcache.Store.
func (s *Store) Upsert(ctx context.Context, entry *embedcache.Entry) (*embedcache.Entry, error) {
	vector, err := json.Marshal(entry.Vector)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}

	row := s.db.QueryRowContext(ctx, s.upsertSQL,
		entry.TextHash,
		entry.Model,
		entry.Preview,
		string(vector),
		int64(entry.AccessCount),
		entry.LastAccessedAt.UnixMilli(),
	)
	stored, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}
	return stored, nil
}

// Count implements embedcache.Store. It also refreshes pool metrics.
func (s *Store) Count(ctx context.Context) (int64, error) {
	metrics.UpdateCacheStorePool(s.dialect.Name, s.db.Stats())

	var n int64
	if err := s.db.QueryRowContext(ctx, s.countSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntry(row *sql.Row) (*embedcache.Entry, error) {
	var (
		entry      embedcache.Entry
		vectorJSON string
		count      int64
		lastMs     int64
	)
	if err := row.Scan(&entry.TextHash, &entry.Model, &entry.Preview, &vectorJSON, &count, &lastMs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vectorJSON), &entry.Vector); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	entry.AccessCount = uint64(count)
	entry.LastAccessedAt = time.UnixMilli(lastMs)
	return &entry, nil
}
