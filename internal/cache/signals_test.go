package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns its URL
func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisSignalCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	c, err := NewRedisSignalCache(ctx, setupRedis(t), time.Hour)
	require.NoError(t, err)
	defer c.Close()

	t.Run("Miss on unknown strategy", func(t *testing.T) {
		got, ok, err := c.Get(ctx, 404)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Set upper-cases and Get strips markers", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, c.Set(ctx, 1, "aapl", "buy", now))
		require.NoError(t, c.Set(ctx, 1, "MSFT", "hold", now))

		got, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, map[string]string{"AAPL": "BUY", "MSFT": "HOLD"}, got)

		ttl, err := c.Client.TTL(ctx, Key(1)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("Older signals do not overwrite newer ones", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, c.Set(ctx, 2, "AAPL", "sell", now))
		require.NoError(t, c.Set(ctx, 2, "AAPL", "buy", now.Add(-time.Minute)))

		got, _, err := c.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "SELL", got["AAPL"])
	})

	t.Run("Drop forgets the strategy", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, 3, "AAPL", "buy", time.Now()))
		require.NoError(t, c.Drop(ctx, 3))

		_, ok, err := c.Get(ctx, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestNopCache(t *testing.T) {
	ctx := context.Background()
	var c SignalCache = Nop{}

	require.NoError(t, c.Set(ctx, 1, "AAPL", "BUY", time.Now()))
	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Drop(ctx, 1))
}
