package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between supported databases.
type Dialect struct {
	// Name is the dialect name used in configuration and metrics.
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// Greatest is the scalar "larger of two values" function.
	Greatest string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
}

var (
	// Postgres renders statements for PostgreSQL via lib/pq.
	Postgres = Dialect{Name: "postgres", Driver: "postgres", Greatest: "GREATEST", numbered: true}
	// SQLite renders statements for SQLite via modernc.org/sqlite.
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", Greatest: "MAX"}
)

// DialectByName resolves a configured dialect name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("sqlstore: unknown dialect %q", name)
	}
}

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const columns = "text_hash, model, text_preview, embedding, access_count, last_accessed"

func (d Dialect) createTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	text_hash     TEXT   NOT NULL,
	model         TEXT   NOT NULL,
	text_preview  TEXT   NOT NULL DEFAULT '',
	embedding     TEXT   NOT NULL,
	access_count  BIGINT NOT NULL DEFAULT 0,
	last_accessed BIGINT NOT NULL,
	PRIMARY KEY (text_hash, model)
)`, table)
}

func (d Dialect) touchQuery(table string) string {
	return d.rebind(fmt.Sprintf(`UPDATE %[1]s
SET access_count = access_count + 1,
    last_accessed = %[2]s(last_accessed, ?)
WHERE text_hash = ? AND model = ?
RETURNING %[3]s`, table, d.Greatest, columns))
}

func (d Dialect) upsertQuery(table string) string {
	return d.rebind(fmt.Sprintf(`INSERT INTO %[1]s (%[3]s)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (text_hash, model) DO UPDATE SET
    text_preview = excluded.text_preview,
    embedding = excluded.embedding,
    last_accessed = %[2]s(%[1]s.last_accessed, excluded.last_accessed)
RETURNING %[3]s`, table, d.Greatest, columns))
}

func (d Dialect) countQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
}
