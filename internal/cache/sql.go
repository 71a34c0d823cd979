package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLConfig configures a SQL-backed store.
type SQLConfig struct {
	Dialect      Dialect
	DSN          string
	Table        string
	MaxOpenConns int
}

// SQLClient stores entries in a single key/value table. Expired rows are
// treated as misses and overwritten on the next Set.
type SQLClient struct {
	db      *sql.DB
	dialect Dialect
	table   string
	now     func() time.Time
}

// NewSQLClient opens the database and creates the cache table if needed.
func NewSQLClient(ctx context.Context, cfg SQLConfig) (*SQLClient, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sql cache: empty dsn")
	}
	table := cfg.Table
	if table == "" {
		table = "wiki_cache"
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("sql cache: invalid table name %q", table)
	}

	db, err := sql.Open(string(cfg.Dialect), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql cache: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	c := &SQLClient{db: db, dialect: cfg.Dialect, table: table, now: time.Now}
	if err := c.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLClient) migrate(ctx context.Context) error {
	blob := "BLOB"
	if c.dialect == DialectPostgres {
		blob = "BYTEA"
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		cache_key  TEXT PRIMARY KEY,
		payload    %s NOT NULL,
		expires_at BIGINT NOT NULL DEFAULT 0
	)`, c.table, blob)
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sql cache: migrate: %w", err)
	}
	return nil
}

// ph returns the n-th (1-based) bind placeholder for the dialect.
func (c *SQLClient) ph(n int) string {
	if c.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Get retrieves a value.
func (c *SQLClient) Get(ctx context.Context, key string) ([]byte, error) {
	q := fmt.Sprintf("SELECT payload, expires_at FROM %s WHERE cache_key = %s", c.table, c.ph(1))
	var payload []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx, q, key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("sql cache get: %w", err)
	}
	if expiresAt > 0 && c.now().UnixNano() > expiresAt {
		return nil, ErrCacheMiss
	}
	return payload, nil
}

// Set upserts a value. A zero ttl never expires.
func (c *SQLClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = c.now().Add(ttl).UnixNano()
	}
	q := fmt.Sprintf(`INSERT INTO %s (cache_key, payload, expires_at) VALUES (%s, %s, %s)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		c.table, c.ph(1), c.ph(2), c.ph(3))
	if _, err := c.db.ExecContext(ctx, q, key, value, expiresAt); err != nil {
		return fmt.Errorf("sql cache set: %w", err)
	}
	return nil
}

// Delete removes a value.
func (c *SQLClient) Delete(ctx context.Context, key string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE cache_key = %s", c.table, c.ph(1))
	if _, err := c.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("sql cache delete: %w", err)
	}
	return nil
}

// DeleteByPrefix removes all keys with the given prefix.
func (c *SQLClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE cache_key LIKE %s ESCAPE '\'`, c.table, c.ph(1))
	if _, err := c.db.ExecContext(ctx, q, escapeLike(prefix)+"%"); err != nil {
		return fmt.Errorf("sql cache delete by prefix: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (c *SQLClient) Close() error {
	return c.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
