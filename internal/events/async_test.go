package events

import (
	"context"
	"testing"
	"time"

	"collaborative-document-service/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAsyncPublisher_DeliversThroughPool(t *testing.T) {
	rec := &recordingPublisher{}
	pool := worker.NewWorkerPool(2, 10, time.Second, zap.NewNop())
	pub := NewAsyncPublisher(rec, pool)

	require.NoError(t, pub.Publish(context.Background(), TopicDocumentCreated, "d1", []byte("{}")))
	require.NoError(t, pub.Publish(context.Background(), TopicDocumentDeleted, "d1", []byte("{}")))
	pool.Shutdown()

	assert.Len(t, rec.snapshot(), 2)
}

func TestAsyncPublisher_ReportsDrop(t *testing.T) {
	pool := worker.NewWorkerPool(1, 1, time.Second, zap.NewNop())
	pool.Shutdown()

	err := NewAsyncPublisher(&recordingPublisher{}, pool).Publish(context.Background(), TopicDocumentCreated, "d1", nil)
	assert.Error(t, err)
}
