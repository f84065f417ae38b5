package eventsourcing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akriventsev/bankcore/internal/events"
	"github.com/akriventsev/bankcore/internal/metrics"
)

// AggregateInterface интерфейс для Event Sourced агрегатов
type AggregateInterface interface {
	ID() string
	Version() int64
	UncommittedEvents() []events.Event
	MarkEventsAsCommitted()
	LoadFromHistory(history []events.Event) error
}

// AggregateFactory фабричная функция для создания пустых агрегатов перед сверткой
type AggregateFactory[T AggregateInterface] func(id string) T

// Repository generic репозиторий для Event Sourced агрегатов.
// Состояние агрегата всегда производное: GetByID свертывает полный поток,
// Save фиксирует несохраненные события одним атомарным коммитом.
type Repository[T AggregateInterface] struct {
	store     EventStore
	factory   AggregateFactory[T]
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewRepository создает новый репозиторий поверх EventStore
func NewRepository[T AggregateInterface](store EventStore, factory AggregateFactory[T]) *Repository[T] {
	return &Repository[T]{
		store:   store,
		factory: factory,
		logger:  zap.NewNop(),
	}
}

// WithPublisher устанавливает публикатор зафиксированных событий.
// Публикация выполняется после коммита и никогда его не откатывает.
func (r *Repository[T]) WithPublisher(publisher events.EventPublisher) *Repository[T] {
	r.publisher = publisher
	return r
}

// WithMetrics устанавливает сборщик метрик зафиксированных событий
func (r *Repository[T]) WithMetrics(m *metrics.Metrics) *Repository[T] {
	r.metrics = m
	return r
}

// WithLogger устанавливает логгер репозитория
func (r *Repository[T]) WithLogger(logger *zap.Logger) *Repository[T] {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// GetByID восстанавливает агрегат сверткой его потока событий.
// Возвращает ErrStreamNotFound если для id не сохранено ни одного события.
func (r *Repository[T]) GetByID(ctx context.Context, aggregateID string) (T, error) {
	var zero T

	stored, err := r.store.GetEvents(ctx, aggregateID, 0)
	if err != nil {
		if errors.Is(err, ErrStreamNotFound) {
			return zero, fmt.Errorf("aggregate %s: %w", aggregateID, ErrStreamNotFound)
		}
		return zero, fmt.Errorf("failed to get events: %w", err)
	}
	if len(stored) == 0 {
		return zero, fmt.Errorf("aggregate %s: %w", aggregateID, ErrStreamNotFound)
	}

	history := make([]events.Event, 0, len(stored))
	for _, s := range stored {
		if s.EventData == nil {
			return zero, fmt.Errorf("stored event %s has no deserialized payload", s.ID)
		}
		history = append(history, s.EventData)
	}

	aggregate := r.factory(aggregateID)
	if err := aggregate.LoadFromHistory(history); err != nil {
		return zero, fmt.Errorf("failed to replay aggregate %s: %w", aggregateID, err)
	}
	return aggregate, nil
}

// Exists проверяет существование потока агрегата
func (r *Repository[T]) Exists(ctx context.Context, aggregateID string) (bool, error) {
	stored, err := r.store.GetEvents(ctx, aggregateID, 0)
	if err != nil {
		if errors.Is(err, ErrStreamNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(stored) > 0, nil
}

// Save фиксирует несохраненные события всех переданных агрегатов одним
// атомарным AppendToStreams. При ErrConcurrencyConflict ни один поток не
// изменяется и несохраненные события остаются на агрегатах.
func (r *Repository[T]) Save(ctx context.Context, aggregates ...T) error {
	appends := make([]StreamAppend, 0, len(aggregates))
	pending := make([][]events.Event, 0, len(aggregates))
	dirty := make([]T, 0, len(aggregates))

	for _, aggregate := range aggregates {
		uncommitted := aggregate.UncommittedEvents()
		if len(uncommitted) == 0 {
			continue
		}
		expectedVersion := aggregate.Version() - int64(len(uncommitted))
		if expectedVersion < 0 {
			return fmt.Errorf("aggregate %s: %w", aggregate.ID(), ErrInvalidVersion)
		}
		appends = append(appends, StreamAppend{
			AggregateID:     aggregate.ID(),
			ExpectedVersion: expectedVersion,
			Events:          uncommitted,
		})
		pending = append(pending, uncommitted)
		dirty = append(dirty, aggregate)
	}

	if len(appends) == 0 {
		return nil
	}

	if err := r.store.AppendToStreams(ctx, appends); err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}

	for _, aggregate := range dirty {
		aggregate.MarkEventsAsCommitted()
	}

	for _, batch := range pending {
		for _, event := range batch {
			if r.metrics != nil {
				r.metrics.RecordEvent(ctx, event.EventType())
			}
			if r.publisher == nil {
				continue
			}
			if err := r.publisher.Publish(ctx, event); err != nil {
				r.logger.Warn("failed to publish committed event",
					zap.String("event_type", event.EventType()),
					zap.String("aggregate_id", event.AggregateID()),
					zap.Error(err))
			}
		}
	}

	return nil
}
