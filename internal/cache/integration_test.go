//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisClient_Container(t *testing.T) {
	ctx := context.Background()

	container, err := redis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := NewRedisClient(ctx, RedisConfig{
		Addr:     fmt.Sprintf("%s:%s", host, port.Port()),
		PoolSize: 4,
		Prefix:   "cougar-test:",
	})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)

	// Purges span several scan batches and leave other namespaces alone.
	for i := 0; i < 3*redisScanBatch+7; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("q:query %d", i), []byte("x"), 0))
	}
	require.NoError(t, c.Set(ctx, "nissan skyline (r34)", []byte("y"), 0))
	require.NoError(t, c.DeleteByPrefix(ctx, "q:"))
	_, err = c.Get(ctx, "q:query 0")
	require.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, fmt.Sprintf("q:query %d", 3*redisScanBatch+6))
	require.ErrorIs(t, err, ErrCacheMiss)
	got, err := c.Get(ctx, "nissan skyline (r34)")
	require.NoError(t, err)
	require.Equal(t, []byte("y"), got)
}

func TestSQLClient_PostgresContainer(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("cougar_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	c, err := NewSQLClient(ctx, SQLConfig{Dialect: DialectPostgres, DSN: dsn})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)
}
