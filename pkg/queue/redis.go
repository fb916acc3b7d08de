package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"TradeCore/pkg/logger"
)

// RedisQueue is a publish-only Redis list queue. A separate notifier process
// drains it, so this side carries no worker pool.
type RedisQueue struct {
	l         *logger.Logger
	client    *redis.Client
	keyPrefix string
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the key prefix for queue keys.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// NewRedisPublisher creates a publisher over an existing Redis client. The
// connection is verified with a ping; a failure is logged, not fatal, since
// callers treat enqueue as fire-and-forget anyway.
func NewRedisPublisher(lgr *logger.Logger, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	q := &RedisQueue{
		l:         lgr,
		client:    client,
		keyPrefix: "tradecore:queue",
	}
	for _, opt := range opts {
		opt(q)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		lgr.Warn("redis publisher ping failed", logger.Error(err))
	} else {
		lgr.Info("redis publisher started",
			logger.String("addr", client.Options().Addr),
			logger.String("prefix", q.keyPrefix))
	}
	return q
}

// Enqueue pushes one message onto the queue.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	msg := Message{
		ID:         uuid.NewString(),
		Type:       msgType,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.messagesKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Depth reports the number of pending messages.
func (r *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.messagesKey()).Result()
}

// Stop closes the underlying client.
func (r *RedisQueue) Stop(context.Context) error {
	return r.client.Close()
}

func (r *RedisQueue) messagesKey() string {
	return r.keyPrefix + ":messages"
}

var _ Publisher = (*RedisQueue)(nil)
