package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/akriventsev/bankcore/internal/events"
)

// RedisPublisherConfig конфигурация Redis Streams publisher
type RedisPublisherConfig struct {
	Client *redis.Client
	Stream string
	MaxLen int64 // 0 означает без ограничения длины стрима
}

// DefaultRedisPublisherConfig возвращает конфигурацию Redis publisher по умолчанию
func DefaultRedisPublisherConfig() RedisPublisherConfig {
	return RedisPublisherConfig{
		Stream: "bank:account-events",
		MaxLen: 100000,
	}
}

// RedisPublisher публикует события счетов в Redis Stream через XADD
type RedisPublisher struct {
	config RedisPublisherConfig
	client *redis.Client
}

// NewRedisPublisher создает Redis Streams publisher
func NewRedisPublisher(config RedisPublisherConfig) (*RedisPublisher, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("Redis client is required")
	}
	if config.Stream == "" {
		config.Stream = "bank:account-events"
	}
	return &RedisPublisher{
		config: config,
		client: config.Client,
	}, nil
}

// Publish публикует событие
func (r *RedisPublisher) Publish(ctx context.Context, event events.Event) error {
	data, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.config.Stream,
		Values: map[string]interface{}{
			"event_id":     event.EventID(),
			"event_type":   event.EventType(),
			"aggregate_id": event.AggregateID(),
			"payload":      data,
		},
	}
	if r.config.MaxLen > 0 {
		args.MaxLen = r.config.MaxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
