// Package eventsourcing предоставляет append-only журнал событий и
// репозиторий для Event Sourced агрегатов.
package eventsourcing

import (
	"context"
	"errors"
	"time"

	"github.com/akriventsev/bankcore/internal/events"
)

var (
	// ErrConcurrencyConflict возникает при конфликте версий при сохранении событий
	ErrConcurrencyConflict = errors.New("concurrency conflict: expected version does not match current version")
	// ErrStreamNotFound возникает когда поток событий агрегата не найден
	ErrStreamNotFound = errors.New("event stream not found")
	// ErrInvalidVersion возникает при некорректной версии события
	ErrInvalidVersion = errors.New("invalid event version")
)

// StoredEvent представляет сохраненное событие с метаданными журнала
type StoredEvent struct {
	ID          string
	AggregateID string
	EventType   string
	EventData   events.Event
	Version     int64
	Position    int64
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// StreamAppend описывает порцию событий для одного потока агрегата
type StreamAppend struct {
	AggregateID     string
	ExpectedVersion int64
	Events          []events.Event
}

// EventStore интерфейс хранилища событий.
//
// Все реализации обязаны:
//   - проверять expected version на момент коммита и возвращать
//     ErrConcurrencyConflict при расхождении;
//   - никогда не перезаписывать уже сохраненные события;
//   - для AppendToStreams фиксировать либо все потоки, либо ни одного.
type EventStore interface {
	// AppendEvents добавляет события в поток агрегата с проверкой версии
	AppendEvents(ctx context.Context, aggregateID string, expectedVersion int64, evs []events.Event) error

	// AppendToStreams атомарно добавляет события в несколько потоков.
	// Контракт "все или ничего": фиксируются либо все потоки, либо ни одного.
	AppendToStreams(ctx context.Context, appends []StreamAppend) error

	// GetEvents возвращает упорядоченные события агрегата начиная с указанной версии
	GetEvents(ctx context.Context, aggregateID string, fromVersion int64) ([]StoredEvent, error)

	// GetAllEvents возвращает все события начиная с указанной позиции для проекций и replay
	GetAllEvents(ctx context.Context, fromPosition int64) (<-chan StoredEvent, error)
}

// EventDeserializer интерфейс для десериализации событий из хранилища
type EventDeserializer interface {
	// DeserializeEvent восстанавливает типизированное событие из сохраненного
	// payload, сохраняя исходные идентификатор и время возникновения
	DeserializeEvent(eventID, eventType, aggregateID string, occurredAt time.Time, data []byte) (events.Event, error)
}
