package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/infra/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedis_SetAndGet(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := cache.NewRedis[[]string](client, "perms", time.Minute, zap.NewNop())

	c.Set("role-1", []string{"citas", "inventario"})

	got, ok := c.Get("role-1")
	require.True(t, ok)
	assert.Equal(t, []string{"citas", "inventario"}, got)
	assert.True(t, mr.Exists("perms:role-1"))
}

func TestRedis_Expiration(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := cache.NewRedis[string](client, "perms", time.Minute, zap.NewNop())

	c.Set("role-1", "x")
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get("role-1")
	assert.False(t, ok)
}

func TestRedis_Delete(t *testing.T) {
	_, client := setupTestRedis(t)
	c := cache.NewRedis[string](client, "", time.Minute, nil)

	c.Set("k", "v")
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestRedis_DecodeFailureIsMiss(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := cache.NewRedis[[]string](client, "perms", time.Minute, zap.NewNop())

	require.NoError(t, mr.Set("perms:role-1", "not-json"))

	_, ok := c.Get("role-1")
	assert.False(t, ok)
}

func TestRedis_ServerDownIsMiss(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := cache.NewRedis[string](client, "perms", time.Minute, zap.NewNop())

	c.Set("k", "v")
	mr.SetError("ERR server unavailable")

	_, ok := c.Get("k")
	assert.False(t, ok)
}
