package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestNewClient_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "invalid scheme", url: "invalid://url"},
		{name: "empty", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", nil)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestClient_GetSet(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	_, err := client.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNil))

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestClient_SetNX(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_IncrWindow(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		v, err := client.IncrWindow(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, time.Minute, mr.TTL("counter"))

	// later hits do not push the window out
	mr.FastForward(30 * time.Second)
	_, err := client.IncrWindow(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("counter"))

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists("counter"))

	v, err := client.IncrWindow(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestClient_InvalidatePattern(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	kb := client.KeyBuilder
	require.NoError(t, client.Set(ctx, kb.KeyEventStats("a", "0.0"), "{}", time.Minute))
	require.NoError(t, client.Set(ctx, kb.KeyEventStats("b", "0.0"), "{}", time.Minute))
	require.NoError(t, client.Set(ctx, kb.KeyTermGeneration("a"), "1", time.Minute))
	require.NoError(t, client.Set(ctx, kb.KeyEventStatsVersion("a"), "v1", time.Minute))

	deleted, err := client.InvalidatePattern(ctx, kb.KeyEventStatsAll())
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	assert.False(t, mr.Exists(kb.KeyEventStats("a", "0.0")))
	assert.True(t, mr.Exists(kb.KeyTermGeneration("a")))
	assert.True(t, mr.Exists(kb.KeyEventStatsVersion("a")), "versions are not aggregates")
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)

	assert.NoError(t, client.Health(context.Background()))

	mr.SetError("server down")
	assert.Error(t, client.Health(context.Background()))
	mr.SetError("")
}
