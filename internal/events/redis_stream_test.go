package events

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPublisher_AppendsToTopicStream(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	ctx := context.Background()

	pub := NewStreamPublisher(client, 1000)
	require.NoError(t, pub.Publish(ctx, TopicDocumentCreated, "d1", []byte(`{"documentId":"d1"}`)))
	require.NoError(t, pub.Publish(ctx, TopicDocumentCreated, "d2", []byte(`{"documentId":"d2"}`)))

	entries, err := client.XRange(ctx, TopicDocumentCreated, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "d1", entries[0].Values["key"])
	assert.JSONEq(t, `{"documentId":"d1"}`, entries[0].Values["payload"].(string))
	assert.Equal(t, "d2", entries[1].Values["key"])
}

func TestStreamPublisher_BrokerDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	err := NewStreamPublisher(client, 0).Publish(context.Background(), TopicDocumentDeleted, "d1", []byte("{}"))
	assert.Error(t, err)
}
