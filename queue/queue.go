package queue

import (
	"context"
	"log"
	"time"

	"groupcast/config"
)

// Handler consumes one job payload. A non-nil error triggers a retry with
// backoff, up to the queue's retry limit.
type Handler func(ctx context.Context, payload []byte) error

// FailureHandler is invoked once a job has exhausted its retries.
type FailureHandler func(ctx context.Context, payload []byte, err error)

// Options tunes a single enqueue.
type Options struct {
	// Delay postpones the first delivery attempt.
	Delay time.Duration
}

// Queue is the job transport behind the dispatch pipeline. Delivery is
// at-least-once; handlers must be idempotent or guarded. Implementations:
// a broker-backed redis queue and a synchronous in-process fallback, chosen
// at startup and injected everywhere — components never reach for a
// concrete queue directly.
type Queue interface {
	Enqueue(ctx context.Context, kind string, payload any, opts ...Options) error
	Process(kind string, handler Handler)
	OnFailure(kind string, handler FailureHandler)

	// CancelPending removes not-yet-delivered jobs of the given kind whose
	// payload matches. Best effort: jobs already in flight are not touched.
	CancelPending(kind string, match func(payload []byte) bool) error

	Close() error
}

// New selects the queue implementation from config: redis when a broker is
// configured, otherwise the in-process queue.
func New(cfg config.RedisConfig, maxRetries int, logger *log.Logger) Queue {
	if cfg.Enabled {
		return NewRedisQueue(cfg, maxRetries, logger)
	}
	logger.Println("Redis disabled, using in-memory queue")
	return NewInMemoryQueue(maxRetries, logger)
}
