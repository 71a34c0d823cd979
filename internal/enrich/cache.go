// Package enrich resolves free-text car queries to enriched catalog items and
// caches the results by query and by page title.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/luifiio/cougar/internal/cache"
	"github.com/luifiio/cougar/internal/catalog"
	"github.com/luifiio/cougar/internal/observability"
	"github.com/luifiio/cougar/internal/specs"
	"github.com/luifiio/cougar/internal/tokens"
)

// DefaultTTL is how long an enriched item stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// QueryKeyPrefix namespaces query-keyed entries.
const QueryKeyPrefix = "q:"

// Cache namespaces, as reported in metrics.
const (
	NamespaceQuery = "query"
	NamespaceTitle = "title"
)

// entry is the persisted envelope. TS is Unix seconds.
type entry struct {
	TS   float64         `json:"ts"`
	Item json.RawMessage `json:"item"`
}

// QueryKey is the cache key of a free-text query: its lowercased tokens in
// query order. Case, punctuation and spacing do not matter but word order
// does, so "skyline nissan r34" and "nissan skyline r34" are cached apart.
func QueryKey(q string) string {
	return QueryKeyPrefix + tokens.Normalize(q)
}

// TitleKey is the cache key of a page title.
func TitleKey(title string) string {
	return strings.ToLower(title)
}

// Cache stores enriched items over a cache.Client. Entries older than the
// TTL read as absent; they are left in place and overwritten on the next set.
type Cache struct {
	store   cache.Client
	ttl     time.Duration
	now     func() time.Time
	logger  *observability.Logger
	metrics *observability.Metrics
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithCacheObservability sets the logger and metrics.
func WithCacheObservability(logger *observability.Logger, metrics *observability.Metrics) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger.WithComponent("enrich_cache")
		}
		c.metrics = metrics
	}
}

// NewCache wraps store. A non-positive ttl means DefaultTTL.
func NewCache(store cache.Client, ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// GetQuery returns the item cached for a query.
func (c *Cache) GetQuery(ctx context.Context, q string) (*catalog.Item, bool) {
	return c.get(ctx, NamespaceQuery, QueryKey(q))
}

// SetQuery caches item for a query.
func (c *Cache) SetQuery(ctx context.Context, q string, item *catalog.Item) error {
	return c.set(ctx, QueryKey(q), item)
}

// GetTitle returns the item cached for a page title.
func (c *Cache) GetTitle(ctx context.Context, title string) (*catalog.Item, bool) {
	if title == "" {
		return nil, false
	}
	return c.get(ctx, NamespaceTitle, TitleKey(title))
}

// SetTitle caches item for a page title.
func (c *Cache) SetTitle(ctx context.Context, title string, item *catalog.Item) error {
	return c.set(ctx, TitleKey(title), item)
}

// CachedSpecs returns the spec bundle of a fresh title entry.
func (c *Cache) CachedSpecs(ctx context.Context, title string) (*specs.Bundle, bool) {
	item, ok := c.GetTitle(ctx, title)
	if !ok {
		return nil, false
	}
	if item.Specs == nil {
		return specs.NewBundle(), true
	}
	return item.Specs, true
}

// Lookup returns the raw envelope under key, whatever its namespace, and
// whether it has expired.
func (c *Cache) Lookup(ctx context.Context, key string) (item json.RawMessage, storedAt time.Time, expired bool, err error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	storedAt = fromUnix(e.TS)
	return e.Item, storedAt, c.expired(storedAt), nil
}

// Purge deletes every query entry, or every entry when all is set.
func (c *Cache) Purge(ctx context.Context, all bool) error {
	if all {
		return c.store.DeleteByPrefix(ctx, "")
	}
	return c.store.DeleteByPrefix(ctx, QueryKeyPrefix)
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

func (c *Cache) get(ctx context.Context, ns, key string) (*catalog.Item, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Str("key", key).Err(err).Msg("cache read failed")
		}
		c.count(ns, "miss")
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn().Str("key", key).Err(err).Msg("discarding malformed cache entry")
		c.count(ns, "miss")
		return nil, false
	}
	if c.expired(fromUnix(e.TS)) {
		c.count(ns, "expired")
		return nil, false
	}
	if len(e.Item) == 0 || string(e.Item) == "null" {
		c.count(ns, "miss")
		return nil, false
	}

	var item catalog.Item
	if err := json.Unmarshal(e.Item, &item); err != nil {
		c.logger.Warn().Str("key", key).Err(err).Msg("discarding malformed cached item")
		c.count(ns, "miss")
		return nil, false
	}
	c.count(ns, "hit")
	return &item, true
}

func (c *Cache) set(ctx context.Context, key string, item *catalog.Item) error {
	if item == nil {
		return errors.New("enrich cache: nil item")
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode cached item: %w", err)
	}
	raw, err := json.Marshal(entry{TS: toUnix(c.now()), Item: body})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// expired is strict: an entry exactly TTL old is still valid.
func (c *Cache) expired(storedAt time.Time) bool {
	return c.now().Sub(storedAt) > c.ttl
}

func (c *Cache) count(ns, result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(ns, result).Inc()
	}
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnix(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9))
}
