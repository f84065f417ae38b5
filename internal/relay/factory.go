package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/akriventsev/bankcore/internal/events"
)

// PublisherFactory фабрика адаптеров публикации событий
type PublisherFactory struct {
	creators map[string]func(config interface{}) (events.EventPublisher, error)
	mu       sync.RWMutex
}

// NewPublisherFactory создает фабрику с зарегистрированными built-in адаптерами
func NewPublisherFactory() *PublisherFactory {
	factory := &PublisherFactory{
		creators: make(map[string]func(config interface{}) (events.EventPublisher, error)),
	}

	_ = factory.Register("nats", func(config interface{}) (events.EventPublisher, error) {
		cfg, ok := config.(NATSPublisherConfig)
		if !ok {
			return nil, fmt.Errorf("invalid NATS publisher config type: %T", config)
		}
		return NewNATSPublisher(cfg)
	})

	_ = factory.Register("kafka", func(config interface{}) (events.EventPublisher, error) {
		cfg, ok := config.(KafkaPublisherConfig)
		if !ok {
			return nil, fmt.Errorf("invalid Kafka publisher config type: %T", config)
		}
		return NewKafkaPublisher(cfg)
	})

	_ = factory.Register("redis", func(config interface{}) (events.EventPublisher, error) {
		cfg, ok := config.(RedisPublisherConfig)
		if !ok {
			return nil, fmt.Errorf("invalid Redis publisher config type: %T", config)
		}
		return NewRedisPublisher(cfg)
	})

	_ = factory.Register("inmemory", func(config interface{}) (events.EventPublisher, error) {
		return NewInMemoryPublisher(), nil
	})

	return factory
}

// Create создает publisher указанного типа
func (f *PublisherFactory) Create(publisherType string, config interface{}) (events.EventPublisher, error) {
	f.mu.RLock()
	creator, exists := f.creators[publisherType]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown event publisher type: %s", publisherType)
	}

	publisher, err := creator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s event publisher: %w", publisherType, err)
	}
	return publisher, nil
}

// Register регистрирует custom адаптер
func (f *PublisherFactory) Register(name string, creator func(config interface{}) (events.EventPublisher, error)) error {
	if name == "" {
		return fmt.Errorf("adapter name cannot be empty")
	}
	if creator == nil {
		return fmt.Errorf("creator function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.creators[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}
	f.creators[name] = creator
	return nil
}

// ListRegistered возвращает список зарегистрированных адаптеров
func (f *PublisherFactory) ListRegistered() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	return names
}

// CompositePublisher публикует событие во все вложенные publishers
type CompositePublisher struct {
	publishers []events.EventPublisher
}

// NewCompositePublisher создает composite publisher
func NewCompositePublisher(publishers ...events.EventPublisher) *CompositePublisher {
	return &CompositePublisher{publishers: publishers}
}

// Publish публикует событие во все publishers, возвращает последнюю ошибку
func (c *CompositePublisher) Publish(ctx context.Context, event events.Event) error {
	var lastErr error
	for _, publisher := range c.publishers {
		if err := publisher.Publish(ctx, event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
