package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"groupcast/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "groupcast:queue:"

// jobEnvelope is the wire format stored in redis.
type jobEnvelope struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// RedisQueue is the broker-backed implementation. Each job kind gets a list
// for ready jobs and a sorted set for delayed/retrying jobs scored by their
// ready-at time; a promoter goroutine moves due jobs onto the list.
type RedisQueue struct {
	client     *redis.Client
	maxRetries int
	logger     *log.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	failures map[string]FailureHandler
	running  map[string]bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRedisQueue(cfg config.RedisConfig, maxRetries int, logger *log.Logger) *RedisQueue {
	return &RedisQueue{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		maxRetries: maxRetries,
		logger:     logger,
		handlers:   make(map[string]Handler),
		failures:   make(map[string]FailureHandler),
		running:    make(map[string]bool),
		stop:       make(chan struct{}),
	}
}

func listKey(kind string) string    { return keyPrefix + kind }
func delayedKey(kind string) string { return keyPrefix + kind + ":delayed" }

func (q *RedisQueue) Enqueue(ctx context.Context, kind string, payload any, opts ...Options) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	env := jobEnvelope{ID: uuid.NewString(), Kind: kind, Payload: data}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal job envelope: %w", err)
	}

	var delay time.Duration
	if len(opts) > 0 {
		delay = opts[0].Delay
	}

	if delay > 0 {
		readyAt := float64(time.Now().Add(delay).UnixMilli())
		return q.client.ZAdd(ctx, delayedKey(kind), &redis.Z{Score: readyAt, Member: string(raw)}).Err()
	}
	return q.client.LPush(ctx, listKey(kind), string(raw)).Err()
}

// Process starts the consumer and delayed-job promoter for a kind.
func (q *RedisQueue) Process(kind string, handler Handler) {
	q.mu.Lock()
	q.handlers[kind] = handler
	alreadyRunning := q.running[kind]
	q.running[kind] = true
	q.mu.Unlock()

	if alreadyRunning {
		return
	}

	q.wg.Add(2)
	go q.consume(kind)
	go q.promote(kind)
}

func (q *RedisQueue) OnFailure(kind string, handler FailureHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failures[kind] = handler
}

func (q *RedisQueue) consume(kind string) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stop:
			return
		default:
		}

		res, err := q.client.BRPop(ctx, time.Second, listKey(kind)).Result()
		if err != nil {
			if err != redis.Nil {
				q.logger.Printf("Queue %s poll error: %v", kind, err)
				time.Sleep(time.Second)
			}
			continue
		}
		// BRPop returns [key, value]
		if len(res) != 2 {
			continue
		}
		q.handleRaw(ctx, kind, []byte(res[1]))
	}
}

func (q *RedisQueue) handleRaw(ctx context.Context, kind string, raw []byte) {
	var env jobEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		q.logger.Printf("Queue %s dropped undecodable job: %v", kind, err)
		return
	}

	q.mu.Lock()
	handler := q.handlers[kind]
	failure := q.failures[kind]
	q.mu.Unlock()
	if handler == nil {
		return
	}

	err := handler(ctx, env.Payload)
	if err == nil {
		return
	}

	env.Attempts++
	q.logger.Printf("Job %s/%s failed (attempt %d/%d): %v",
		kind, env.ID, env.Attempts, q.maxRetries+1, err)

	if env.Attempts > q.maxRetries {
		q.logger.Printf("Job %s/%s permanently failed", kind, env.ID)
		if failure != nil {
			failure(ctx, env.Payload, err)
		}
		return
	}

	// Exponential-ish backoff via the delayed bucket
	backoff := time.Duration(env.Attempts*500) * time.Millisecond
	retryRaw, marshalErr := json.Marshal(env)
	if marshalErr != nil {
		q.logger.Printf("Job %s/%s retry marshal error: %v", kind, env.ID, marshalErr)
		return
	}
	readyAt := float64(time.Now().Add(backoff).UnixMilli())
	if err := q.client.ZAdd(ctx, delayedKey(kind), &redis.Z{Score: readyAt, Member: string(retryRaw)}).Err(); err != nil {
		q.logger.Printf("Job %s/%s requeue error: %v", kind, env.ID, err)
	}
}

// promote moves due jobs from the delayed bucket onto the ready list.
func (q *RedisQueue) promote(kind string) {
	defer q.wg.Done()
	ctx := context.Background()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
		}

		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		due, err := q.client.ZRangeByScore(ctx, delayedKey(kind), &redis.ZRangeBy{
			Min: "-inf",
			Max: now,
		}).Result()
		if err != nil {
			q.logger.Printf("Queue %s promote error: %v", kind, err)
			continue
		}

		for _, raw := range due {
			// Remove first so a concurrent promoter cannot double-deliver
			removed, err := q.client.ZRem(ctx, delayedKey(kind), raw).Result()
			if err != nil || removed == 0 {
				continue
			}
			if err := q.client.LPush(ctx, listKey(kind), raw).Err(); err != nil {
				q.logger.Printf("Queue %s promote push error: %v", kind, err)
			}
		}
	}
}

func (q *RedisQueue) CancelPending(kind string, match func(payload []byte) bool) error {
	ctx := context.Background()

	matches := func(raw string) bool {
		var env jobEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return false
		}
		return match(env.Payload)
	}

	delayed, err := q.client.ZRange(ctx, delayedKey(kind), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, raw := range delayed {
		if matches(raw) {
			if err := q.client.ZRem(ctx, delayedKey(kind), raw).Err(); err != nil {
				return err
			}
		}
	}

	ready, err := q.client.LRange(ctx, listKey(kind), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, raw := range ready {
		if matches(raw) {
			if err := q.client.LRem(ctx, listKey(kind), 0, raw).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (q *RedisQueue) Close() error {
	close(q.stop)
	q.wg.Wait()
	return q.client.Close()
}
