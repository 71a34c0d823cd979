package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseClient runs the behaviour every backend must share.
func exerciseClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "q:missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "q:nissan skyline r34", []byte(`{"ts":1,"item":{"name":"R34"}}`), time.Hour))
	require.NoError(t, c.Set(ctx, "q:bmw m3", []byte(`{"ts":2,"item":{"name":"M3"}}`), time.Hour))
	require.NoError(t, c.Set(ctx, "nissan skyline", []byte(`{"ts":3,"item":null}`), 0))

	got, err := c.Get(ctx, "q:nissan skyline r34")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ts":1,"item":{"name":"R34"}}`, string(got))

	// overwrite
	require.NoError(t, c.Set(ctx, "q:bmw m3", []byte(`{"ts":9,"item":{"name":"M3 CSL"}}`), time.Hour))
	got, err = c.Get(ctx, "q:bmw m3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ts":9,"item":{"name":"M3 CSL"}}`, string(got))

	require.NoError(t, c.Delete(ctx, "q:bmw m3"))
	_, err = c.Get(ctx, "q:bmw m3")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.DeleteByPrefix(ctx, "q:"))
	_, err = c.Get(ctx, "q:nissan skyline r34")
	assert.ErrorIs(t, err, ErrCacheMiss)

	got, err = c.Get(ctx, "nissan skyline")
	require.NoError(t, err, "title namespace survives a query purge")
	assert.JSONEq(t, `{"ts":3,"item":null}`, string(got))

	require.NoError(t, c.DeleteByPrefix(ctx, ""))
	_, err = c.Get(ctx, "nissan skyline")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient(t *testing.T) {
	exerciseClient(t, NewMemoryClient(100))
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("1"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Eviction(t *testing.T) {
	c := NewMemoryClient(2)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss, "entry expiring soonest is evicted")
}

func TestMemoryClient_CopiesValues(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileClient(t *testing.T) {
	c, err := NewFileClient(filepath.Join(t.TempDir(), "nested", "wiki_cache.json"))
	require.NoError(t, err)
	exerciseClient(t, c)
}

func TestFileClient_OnDiskShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiki_cache.json")
	c, err := NewFileClient(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "bmw m3", []byte(`{"ts":1700000000,"item":{"name":"BMW M3"}}`), time.Hour))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var store map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &store))
	require.Contains(t, store, "bmw m3")
	assert.EqualValues(t, 1700000000, store["bmw m3"]["ts"])
}

func TestFileClient_RejectsNonJSON(t *testing.T) {
	c, err := NewFileClient(filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)
	assert.Error(t, c.Set(context.Background(), "k", []byte("not json"), 0))
}

func TestFileClient_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	c, err := NewFileClient(path)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestFileClient_ConcurrentWritersInProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	c, err := NewFileClient(path)
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, c.Set(ctx, key, []byte(`{"n":1}`), 0))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		_, err := c.Get(ctx, string(rune('a'+i)))
		assert.NoError(t, err)
	}
}

func TestSQLClient_SQLite(t *testing.T) {
	ctx := context.Background()
	c, err := NewSQLClient(ctx, SQLConfig{
		Dialect: DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "cache.db"),
	})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)
}

func TestSQLClient_ExpiryAndLikeEscaping(t *testing.T) {
	ctx := context.Background()
	c, err := NewSQLClient(ctx, SQLConfig{
		Dialect: DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "cache.db"),
	})
	require.NoError(t, err)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("1"), time.Minute))
	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "a_b", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "axb", []byte("1"), 0))
	require.NoError(t, c.DeleteByPrefix(ctx, "a_"))
	_, err = c.Get(ctx, "axb")
	assert.NoError(t, err, "underscore is literal in prefix")
	_, err = c.Get(ctx, "a_b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewSQLClient_RejectsBadTable(t *testing.T) {
	_, err := NewSQLClient(context.Background(), SQLConfig{
		Dialect: DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "cache.db"),
		Table:   "wiki; DROP TABLE x",
	})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryClient{}, c)

	c, err = Open(ctx, Options{Driver: "file", Path: filepath.Join(t.TempDir(), "c.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileClient{}, c)

	c, err = Open(ctx, Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLClient{}, c)
	require.NoError(t, c.Close())

	_, err = Open(ctx, Options{Driver: "etcd"})
	assert.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis cache: connect 127.0.0.1:1")
}
