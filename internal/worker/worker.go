package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type WorkerPool struct {
	taskQueue   chan Task
	wg          sync.WaitGroup
	isClosing   atomic.Bool
	taskTimeout time.Duration
	logger      *zap.Logger
}

// NewWorkerPool starts size workers reading from a queue of queueSize pending
// tasks. Each task runs under its own timeout.
func NewWorkerPool(size, queueSize int, taskTimeout time.Duration, logger *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	wp := &WorkerPool{
		taskQueue:   make(chan Task, queueSize),
		taskTimeout: taskTimeout,
		logger:      logger,
	}

	for i := 0; i < size; i++ {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), wp.taskTimeout)
	defer cancel()
	if err := task(ctx); err != nil {
		wp.logger.Warn("worker task failed", zap.Error(err))
	}
}

// Submit queues t without blocking. It reports false when the task was dropped
// because the pool is shutting down or the queue is full.
func (wp *WorkerPool) Submit(t Task) (accepted bool) {
	if wp.isClosing.Load() {
		wp.logger.Warn("task submitted during shutdown, dropping")
		return false
	}
	defer func() {
		// Shutdown may close the queue between the check above and the send.
		if recover() != nil {
			accepted = false
		}
	}()
	select {
	case wp.taskQueue <- t:
		return true
	default:
		wp.logger.Warn("task queue full, dropping task")
		return false
	}
}

// Shutdown closes the queue and waits for workers to drain it
func (wp *WorkerPool) Shutdown() {
	if wp.isClosing.Swap(true) {
		return
	}
	close(wp.taskQueue)
	wp.wg.Wait()
}
