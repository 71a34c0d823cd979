// Package cache provides the byte-level key/value stores behind the enrichment cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Options selects and configures a backend for Open.
type Options struct {
	// Driver is one of memory, file, redis, sqlite or postgres.
	Driver string
	// Path is the JSON file used by the file driver.
	Path string
	// DSN is the sqlite path or postgres connection string.
	DSN string
	// Table is the SQL table name; defaults to wiki_cache.
	Table      string
	MaxEntries int
	MaxConns   int
	Redis      RedisConfig
}

// Open constructs the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Client, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "memory":
		return NewMemoryClient(opts.MaxEntries), nil
	case "file":
		return NewFileClient(opts.Path)
	case "redis":
		return NewRedisClient(ctx, opts.Redis)
	case "sqlite", "sqlite3":
		return NewSQLClient(ctx, SQLConfig{Dialect: DialectSQLite, DSN: opts.DSN, Table: opts.Table, MaxOpenConns: opts.MaxConns})
	case "postgres", "postgresql":
		return NewSQLClient(ctx, SQLConfig{Dialect: DialectPostgres, DSN: opts.DSN, Table: opts.Table, MaxOpenConns: opts.MaxConns})
	default:
		return nil, fmt.Errorf("unknown cache driver %q", opts.Driver)
	}
}
