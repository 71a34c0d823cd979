package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient implements an in-process cache for development and tests.
type MemoryClient struct {
	store   *gocache.Cache
	maxSize int
}

// NewMemoryClient creates an in-memory cache holding at most maxSize entries.
func NewMemoryClient(maxSize int) *MemoryClient {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryClient{
		store:   gocache.New(gocache.NoExpiration, time.Minute),
		maxSize: maxSize,
	}
}

// Get retrieves a value.
func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Set stores a copy of value. A zero ttl never expires.
func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if _, exists := c.store.Get(key); !exists && c.store.ItemCount() >= c.maxSize {
		c.store.DeleteExpired()
		if c.store.ItemCount() >= c.maxSize {
			c.evictSoonest()
		}
	}

	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	c.store.Set(key, buf, ttl)
	return nil
}

// Delete removes a value.
func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// DeleteByPrefix removes all keys with the given prefix.
func (c *MemoryClient) DeleteByPrefix(_ context.Context, prefix string) error {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (c *MemoryClient) Len() int {
	return c.store.ItemCount()
}

// Close is a no-op for memory cache.
func (c *MemoryClient) Close() error {
	return nil
}

// evictSoonest drops the entry that would expire first; entries without
// expiry go last.
func (c *MemoryClient) evictSoonest() {
	var victim string
	var soonest int64
	for key, item := range c.store.Items() {
		exp := item.Expiration
		if exp == 0 {
			exp = 1<<63 - 1
		}
		if victim == "" || exp < soonest {
			victim, soonest = key, exp
		}
	}
	if victim != "" {
		c.store.Delete(victim)
	}
}
