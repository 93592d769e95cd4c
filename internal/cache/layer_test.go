package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"collaborative-document-service/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func setupLayer(t *testing.T) (*Layer, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client, err := redis.NewClient(context.Background(), s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewLayer(redis.NewCache(client), time.Minute, time.Second, zap.NewNop()), s
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "doc:abc", DocumentKey("abc"))
	assert.Equal(t, "docsByOwner:u1:2:10", OwnerListKey("u1", 2, 10))
	assert.Equal(t, "docsByOwner:u1:", OwnerListPrefix("u1"))
}

func TestReadThrough_MissThenHit(t *testing.T) {
	layer, s := setupLayer(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (item, error) {
		calls++
		return item{ID: "1", Title: "Test Doc"}, nil
	}

	got, cached, err := ReadThrough(ctx, layer, "doc:1", loader)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "Test Doc", got.Title)
	assert.True(t, s.Exists("doc:1"))
	assert.Equal(t, time.Minute, s.TTL("doc:1"))

	got, cached, err = ReadThrough(ctx, layer, "doc:1", loader)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "Test Doc", got.Title)
	assert.Equal(t, 1, calls)
}

func TestReadThrough_LoaderError(t *testing.T) {
	layer, s := setupLayer(t)
	boom := errors.New("boom")

	_, _, err := ReadThrough(context.Background(), layer, "doc:1", func(context.Context) (item, error) {
		return item{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Exists("doc:1"))
}

func TestReadThrough_BackendDownFallsBackToLoader(t *testing.T) {
	layer, s := setupLayer(t)
	s.Close()

	got, cached, err := ReadThrough(context.Background(), layer, "doc:1", func(context.Context) (item, error) {
		return item{ID: "1"}, nil
	})

	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "1", got.ID)
}

func TestReadThrough_CorruptEntryIsMiss(t *testing.T) {
	layer, s := setupLayer(t)
	require.NoError(t, s.Set("doc:1", "not json"))

	got, cached, err := ReadThrough(context.Background(), layer, "doc:1", func(context.Context) (item, error) {
		return item{ID: "1"}, nil
	})

	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "1", got.ID)
}

func TestReadThrough_NilLayer(t *testing.T) {
	got, cached, err := ReadThrough[item](context.Background(), nil, "doc:1", func(context.Context) (item, error) {
		return item{ID: "1"}, nil
	})

	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "1", got.ID)
}

func TestInvalidate(t *testing.T) {
	layer, s := setupLayer(t)
	ctx := context.Background()

	require.NoError(t, layer.WriteThrough(ctx, "doc:1", item{ID: "1"}))
	require.NoError(t, layer.WriteThrough(ctx, OwnerListKey("u1", 1, 10), []item{{ID: "1"}}))
	require.NoError(t, layer.WriteThrough(ctx, OwnerListKey("u1", 2, 10), []item{}))
	require.NoError(t, layer.WriteThrough(ctx, OwnerListKey("u2", 1, 10), []item{}))

	require.NoError(t, layer.Invalidate(ctx, "doc:1"))
	require.NoError(t, layer.InvalidatePrefix(ctx, OwnerListPrefix("u1")))

	assert.False(t, s.Exists("doc:1"))
	assert.False(t, s.Exists(OwnerListKey("u1", 1, 10)))
	assert.False(t, s.Exists(OwnerListKey("u1", 2, 10)))
	assert.True(t, s.Exists(OwnerListKey("u2", 1, 10)))
}

func TestFailuresAreReturnedNotPanicked(t *testing.T) {
	layer, s := setupLayer(t)
	s.Close()
	ctx := context.Background()

	assert.Error(t, layer.WriteThrough(ctx, "doc:1", item{}))
	assert.Error(t, layer.Invalidate(ctx, "doc:1"))
	assert.Error(t, layer.InvalidatePrefix(ctx, "docsByOwner:u1:"))
}
