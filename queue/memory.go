package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryQueue is the no-broker fallback. Jobs without a delay run
// synchronously inside Enqueue; delayed jobs fire from a timer. Retry and
// failure semantics match the redis queue so workers cannot tell them apart.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string]Handler
	failures   map[string]FailureHandler
	delayed    map[string]map[string]*delayedJob // kind -> job id -> job
	maxRetries int
	logger     *log.Logger

	// Backoff computes the pause before retry n (1-based). Overridable in
	// tests to keep them fast.
	Backoff func(attempt int) time.Duration

	closed bool
}

type delayedJob struct {
	payload []byte
	timer   *time.Timer
}

func NewInMemoryQueue(maxRetries int, logger *log.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string]Handler),
		failures:   make(map[string]FailureHandler),
		delayed:    make(map[string]map[string]*delayedJob),
		maxRetries: maxRetries,
		logger:     logger,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*500) * time.Millisecond
		},
	}
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, kind string, payload any, opts ...Options) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	var delay time.Duration
	if len(opts) > 0 {
		delay = opts[0].Delay
	}

	if delay <= 0 {
		q.run(kind, data)
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	id := uuid.NewString()
	if q.delayed[kind] == nil {
		q.delayed[kind] = make(map[string]*delayedJob)
	}
	job := &delayedJob{payload: data}
	job.timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.delayed[kind], id)
		q.mu.Unlock()
		q.run(kind, data)
	})
	q.delayed[kind][id] = job
	return nil
}

// run executes the job with retries, then hands it to the failure handler.
func (q *InMemoryQueue) run(kind string, payload []byte) {
	q.mu.Lock()
	handler := q.handlers[kind]
	failure := q.failures[kind]
	q.mu.Unlock()

	if handler == nil {
		q.logger.Printf("No handler registered for job kind %q, dropping job", kind)
		return
	}

	var err error
	for attempt := 0; attempt <= q.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(q.Backoff(attempt))
		}
		if err = handler(context.Background(), payload); err == nil {
			return
		}
		q.logger.Printf("Job %s failed (attempt %d/%d): %v", kind, attempt+1, q.maxRetries+1, err)
	}

	q.logger.Printf("Job %s permanently failed: %v", kind, err)
	if failure != nil {
		failure(context.Background(), payload, err)
	}
}

func (q *InMemoryQueue) Process(kind string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

func (q *InMemoryQueue) OnFailure(kind string, handler FailureHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failures[kind] = handler
}

func (q *InMemoryQueue) CancelPending(kind string, match func(payload []byte) bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, job := range q.delayed[kind] {
		if match(job.payload) {
			job.timer.Stop()
			delete(q.delayed[kind], id)
		}
	}
	return nil
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	for _, jobs := range q.delayed {
		for id, job := range jobs {
			job.timer.Stop()
			delete(jobs, id)
		}
	}
	q.mu.Unlock()
	return nil
}
