// Package queue is the work queue named in spec.md §4.2: an at-least-once
// dispatcher between the ingest router and the pipeline orchestrator. This
// module's deployment runs it in-process over a buffered Go channel; the
// Queue interface is the seam a real deployment would swap for a managed
// broker (SQS, Pub/Sub, Kafka) without touching internal/router or
// internal/pipeline. Grounded on the teacher's internal/worker.Manager
// Start/Stop lifecycle, with cenkalti/backoff driving per-task retry delay
// in place of the teacher's no-retry worker loop.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Task is one unit of work the queue hands to a Handler. Kind selects which
// /tasks/* route this task's payload came from (and so which dispatcher
// branch decodes it); Payload is the same JSON body that route received.
type Task struct {
	ID       string
	Kind     string
	Payload  []byte
	Attempt  int
	Enqueued time.Time
}

// Handler processes one Task. A returned error causes the task to be
// retried with backoff up to MaxRetries; Handler implementations should
// treat a terminal failure by recording it themselves and returning nil, per
// spec.md §9's Result-returning-steps redesign (errors from Handler mean
// "retry the whole task", not "this step failed").
type Handler func(ctx context.Context, task Task) error

// Config controls retry backoff and queue depth.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	BufferSize int
}

// Queue is the work-queue contract spec.md §4.2 names.
type Queue interface {
	Enqueue(task Task) error
	Run(ctx context.Context, handler Handler)
	Stop()
}

// InProcess is a buffered-channel Queue with exponential backoff retry, used
// as this deployment's concrete Queue implementation.
type InProcess struct {
	cfg    Config
	tasks  chan Task
	logger *zap.Logger
	wg     sync.WaitGroup
	stop   chan struct{}
	once   sync.Once
}

// New builds an InProcess queue.
func New(cfg Config, logger *zap.Logger) *InProcess {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &InProcess{
		cfg:    cfg,
		tasks:  make(chan Task, cfg.BufferSize),
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Enqueue submits task for processing. Blocks if the queue is at capacity,
// applying backpressure to the caller (the ingest router) rather than
// dropping work.
func (q *InProcess) Enqueue(task Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-q.stop:
		return context.Canceled
	}
}

// Run starts a single dispatch loop that pulls tasks and invokes handler,
// retrying with exponential backoff on error up to cfg.MaxRetries. Run
// blocks until ctx is cancelled or Stop is called.
func (q *InProcess) Run(ctx context.Context, handler Handler) {
	q.wg.Add(1)
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case task := <-q.tasks:
			q.process(ctx, task, handler)
		}
	}
}

func (q *InProcess) process(ctx context.Context, task Task, handler Handler) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = q.cfg.BaseDelay
	policy.MaxInterval = q.cfg.MaxDelay
	bo := backoff.WithMaxRetries(policy, uint64(q.cfg.MaxRetries))

	attempt := 0
	operation := func() error {
		attempt++
		task.Attempt = attempt
		err := handler(ctx, task)
		if err != nil {
			q.logger.Warn("task failed, retrying",
				zap.String("task_id", task.ID), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		q.logger.Error("task exhausted retries",
			zap.String("task_id", task.ID), zap.Int("attempts", attempt), zap.Error(err))
	}
}

// Stop halts the dispatch loop and waits for the in-flight task to finish.
func (q *InProcess) Stop() {
	q.once.Do(func() { close(q.stop) })
	q.wg.Wait()
}
