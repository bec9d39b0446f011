package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	return rdb
}

func TestIdempotencyStore(t *testing.T) {
	rdb := setupRedis(t)
	store := NewIdempotencyStore(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := store.Recall(ctx, "7", "key-1")
	require.NoError(t, err)
	assert.False(t, ok)

	locked, err := store.TryLock(ctx, "7", "key-1")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = store.TryLock(ctx, "7", "key-1")
	require.NoError(t, err)
	assert.False(t, locked, "second claim on the same key must fail")

	locked, err = store.TryLock(ctx, "8", "key-1")
	require.NoError(t, err)
	assert.True(t, locked, "keys are scoped per user")

	require.NoError(t, store.Remember(ctx, "7", "key-1", "42"))
	val, ok, err := store.Recall(ctx, "7", "key-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", val)

	require.NoError(t, store.Release(ctx, "8", "key-1"))
	locked, err = store.TryLock(ctx, "8", "key-1")
	require.NoError(t, err)
	assert.True(t, locked, "released key can be claimed again")
}
