package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/akriventsev/bankcore/internal/events"
)

// NATSPublisherConfig конфигурация NATS publisher
type NATSPublisherConfig struct {
	Conn          *nats.Conn
	SubjectPrefix string
	RetryPolicy   RetryConfig
}

// DefaultNATSPublisherConfig возвращает конфигурацию NATS publisher по умолчанию
func DefaultNATSPublisherConfig() NATSPublisherConfig {
	return NATSPublisherConfig{
		SubjectPrefix: "bank.events",
		RetryPolicy:   DefaultRetryConfig(),
	}
}

// NATSPublisher публикует события счетов в NATS
type NATSPublisher struct {
	config NATSPublisherConfig
	conn   *nats.Conn
}

// NewNATSPublisher создает NATS publisher
func NewNATSPublisher(config NATSPublisherConfig) (*NATSPublisher, error) {
	if config.Conn == nil {
		return nil, fmt.Errorf("NATS connection is required")
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "bank.events"
	}
	if config.RetryPolicy.MaxAttempts == 0 {
		config.RetryPolicy = DefaultRetryConfig()
	}
	return &NATSPublisher{
		config: config,
		conn:   config.Conn,
	}, nil
}

// Publish публикует событие в subject {prefix}.{event_type}
func (n *NATSPublisher) Publish(ctx context.Context, event events.Event) error {
	data, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", n.config.SubjectPrefix, event.EventType())
	return n.publishWithRetry(ctx, subject, data)
}

// Close закрывает соединение с NATS
func (n *NATSPublisher) Close() {
	n.conn.Close()
}

func (n *NATSPublisher) publishWithRetry(ctx context.Context, subject string, data []byte) error {
	retryConfig := n.config.RetryPolicy
	delay := retryConfig.InitialDelay

	for attempt := 0; attempt < retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * retryConfig.BackoffMultiplier)
			if delay > retryConfig.MaxDelay {
				delay = retryConfig.MaxDelay
			}
		}

		if err := n.conn.Publish(subject, data); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to publish event after %d attempts", retryConfig.MaxAttempts)
}
