package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client, err := NewClient(context.Background(), s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewCache(client), s
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := NewClient(context.Background(), addr)
	assert.Error(t, err)
}

func TestCache_GetSetDelete(t *testing.T) {
	cache, s := setupTestCache(t)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "doc:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "doc:1", []byte(`{"id":"1"}`), time.Minute))
	val, found, err := cache.Get(ctx, "doc:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"id":"1"}`, string(val))
	assert.Equal(t, time.Minute, s.TTL("doc:1"))

	require.NoError(t, cache.Delete(ctx, "doc:1"))
	assert.False(t, s.Exists("doc:1"))
}

func TestCache_Expires(t *testing.T) {
	cache, s := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "doc:1", []byte("x"), time.Second))
	s.FastForward(2 * time.Second)

	_, found, err := cache.Get(ctx, "doc:1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_DeletePrefix(t *testing.T) {
	cache, s := setupTestCache(t)
	ctx := context.Background()

	for page := 1; page <= 250; page++ {
		require.NoError(t, s.Set(fmt.Sprintf("docsByOwner:u1:%d:10", page), "[]"))
	}
	require.NoError(t, s.Set("docsByOwner:u2:1:10", "[]"))
	require.NoError(t, s.Set("doc:abc", "{}"))

	deleted, err := cache.DeletePrefix(ctx, "docsByOwner:u1:")
	require.NoError(t, err)

	assert.Equal(t, 250, deleted)
	assert.True(t, s.Exists("docsByOwner:u2:1:10"))
	assert.True(t, s.Exists("doc:abc"))
	assert.False(t, s.Exists("docsByOwner:u1:7:10"))
}

func TestCache_DeletePrefixIsLiteral(t *testing.T) {
	cache, s := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, s.Set("docsByOwner:u*:1:10", "[]"))
	require.NoError(t, s.Set("docsByOwner:u1:1:10", "[]"))
	require.NoError(t, s.Set("docsByOwner:u[1]:1:10", "[]"))
	require.NoError(t, s.Set(`docsByOwner:u\:1:10`, "[]"))

	deleted, err := cache.DeletePrefix(ctx, "docsByOwner:u*:")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.False(t, s.Exists("docsByOwner:u*:1:10"))
	assert.True(t, s.Exists("docsByOwner:u1:1:10"))
	assert.True(t, s.Exists("docsByOwner:u[1]:1:10"))

	deleted, err = cache.DeletePrefix(ctx, "docsByOwner:u[1]:")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.True(t, s.Exists("docsByOwner:u1:1:10"))

	deleted, err = cache.DeletePrefix(ctx, `docsByOwner:u\:`)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.True(t, s.Exists("docsByOwner:u1:1:10"))
}

func TestOpen_RecoversAfterOutage(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	client := Open(addr)
	t.Cleanup(func() { client.Close() })
	cache := NewCache(client)
	ctx := context.Background()

	assert.Error(t, Ping(ctx, client))
	_, _, err := cache.Get(ctx, "doc:1")
	assert.Error(t, err)

	require.NoError(t, s.Restart())
	assert.Eventually(t, func() bool {
		return cache.Set(ctx, "doc:1", []byte("x"), time.Minute) == nil
	}, 5*time.Second, 50*time.Millisecond)
	val, found, err := cache.Get(ctx, "doc:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", string(val))
}

func TestCache_BackendDown(t *testing.T) {
	cache, s := setupTestCache(t)
	s.Close()

	_, _, err := cache.Get(context.Background(), "doc:1")
	assert.Error(t, err)
}
