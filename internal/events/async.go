package events

import (
	"context"
	"fmt"

	"collaborative-document-service/internal/worker"
)

// AsyncPublisher hands publishes to a worker pool so callers never wait on the
// broker. A full queue drops the event and reports it.
type AsyncPublisher struct {
	next Publisher
	pool *worker.WorkerPool
}

func NewAsyncPublisher(next Publisher, pool *worker.WorkerPool) *AsyncPublisher {
	return &AsyncPublisher{next: next, pool: pool}
}

func (p *AsyncPublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	accepted := p.pool.Submit(func(ctx context.Context) error {
		return p.next.Publish(ctx, topic, key, payload)
	})
	if !accepted {
		return fmt.Errorf("event %s for %s dropped: dispatch queue unavailable", topic, key)
	}
	return nil
}

var _ Publisher = (*AsyncPublisher)(nil)
