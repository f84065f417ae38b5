package eventsourcing

import (
	"fmt"

	"github.com/akriventsev/bankcore/internal/events"
)

// EventApplier интерфейс для агрегатов, которые применяют события к своему состоянию
type EventApplier interface {
	// Apply применяет конкретное событие к состоянию агрегата
	Apply(event events.Event) error
}

// AggregateRoot базовый тип для Event Sourced агрегатов.
// Состояние восстанавливается исключительно сверткой истории событий;
// версия равна числу примененных событий.
type AggregateRoot struct {
	id                string
	version           int64
	uncommittedEvents []events.Event
	applier           EventApplier
}

// NewAggregateRoot создает новый Event Sourced агрегат
func NewAggregateRoot(id string, applier EventApplier) *AggregateRoot {
	return &AggregateRoot{
		id:                id,
		version:           0,
		uncommittedEvents: make([]events.Event, 0),
		applier:           applier,
	}
}

// ID возвращает идентификатор агрегата
func (a *AggregateRoot) ID() string {
	return a.id
}

// Version возвращает текущую версию агрегата
func (a *AggregateRoot) Version() int64 {
	return a.version
}

// RaiseEvent применяет новое событие и добавляет его в несохраненные.
// Команды вызывают RaiseEvent только после проверки всех инвариантов,
// поэтому ошибка применения здесь означает дефект свертки.
func (a *AggregateRoot) RaiseEvent(event events.Event) error {
	if err := a.ApplyEvent(event); err != nil {
		return fmt.Errorf("failed to apply event %s: %w", event.EventType(), err)
	}
	a.uncommittedEvents = append(a.uncommittedEvents, event)
	a.version++
	return nil
}

// ApplyEvent применяет событие к состоянию агрегата
func (a *AggregateRoot) ApplyEvent(event events.Event) error {
	if a.applier == nil {
		return fmt.Errorf("event applier not set for aggregate %s", a.id)
	}
	return a.applier.Apply(event)
}

// LoadFromHistory восстанавливает состояние агрегата из истории событий
func (a *AggregateRoot) LoadFromHistory(history []events.Event) error {
	for i, event := range history {
		if err := a.ApplyEvent(event); err != nil {
			return fmt.Errorf("failed to apply event at index %d: %w", i, err)
		}
		a.version++
	}
	return nil
}

// UncommittedEvents возвращает несохраненные события
func (a *AggregateRoot) UncommittedEvents() []events.Event {
	return a.uncommittedEvents
}

// MarkEventsAsCommitted очищает несохраненные события после сохранения
func (a *AggregateRoot) MarkEventsAsCommitted() {
	a.uncommittedEvents = make([]events.Event, 0)
}
