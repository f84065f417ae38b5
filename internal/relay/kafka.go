package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/akriventsev/bankcore/internal/events"
)

// KafkaPublisherConfig конфигурация Kafka publisher
type KafkaPublisherConfig struct {
	Brokers       []string
	Topic         string
	Compression   string // none, gzip, snappy, lz4, zstd
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultKafkaPublisherConfig возвращает конфигурацию Kafka publisher по умолчанию
func DefaultKafkaPublisherConfig() KafkaPublisherConfig {
	return KafkaPublisherConfig{
		Brokers:       []string{"localhost:9092"},
		Topic:         "bank.account-events",
		Compression:   "snappy",
		BatchSize:     100,
		FlushInterval: 10 * time.Millisecond,
	}
}

// KafkaPublisher публикует события счетов в один топик Kafka.
// Ключ сообщения равен aggregate ID: hash balancer кладет события одного
// счета в одну партицию и сохраняет их порядок.
type KafkaPublisher struct {
	config KafkaPublisherConfig
	writer *kafka.Writer
}

// NewKafkaPublisher создает Kafka publisher
func NewKafkaPublisher(config KafkaPublisherConfig) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("Kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: -1,
		Async:        false,
		BatchSize:    config.BatchSize,
		BatchTimeout: config.FlushInterval,
		Compression:  kafkaCompression(config.Compression),
		WriteTimeout: 10 * time.Second,
	}

	return &KafkaPublisher{
		config: config,
		writer: writer,
	}, nil
}

func kafkaCompression(compression string) kafka.Compression {
	switch compression {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}

// Publish публикует событие
func (k *KafkaPublisher) Publish(ctx context.Context, event events.Event) error {
	data, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID())},
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "aggregate_id", Value: []byte(event.AggregateID())},
			{Key: "occurred_at", Value: []byte(event.OccurredAt().Format(time.RFC3339Nano))},
		},
	}

	if metadata := event.Metadata(); metadata != nil {
		if correlationID := metadata.CorrelationID(); correlationID != "" {
			msg.Headers = append(msg.Headers, kafka.Header{
				Key:   "correlation_id",
				Value: []byte(correlationID),
			})
		}
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close закрывает writer
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
