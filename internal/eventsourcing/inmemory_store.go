package eventsourcing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akriventsev/bankcore/internal/events"
)

// InMemoryEventStore реализация EventStore в памяти для тестов и разработки
type InMemoryEventStore struct {
	mu        sync.RWMutex
	streams   map[string][]StoredEvent
	allEvents []StoredEvent
	position  int64
}

// NewInMemoryEventStore создает новый InMemory Event Store
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:   make(map[string][]StoredEvent),
		allEvents: make([]StoredEvent, 0),
	}
}

// AppendEvents добавляет события в поток агрегата
func (s *InMemoryEventStore) AppendEvents(ctx context.Context, aggregateID string, expectedVersion int64, evs []events.Event) error {
	return s.AppendToStreams(ctx, []StreamAppend{{
		AggregateID:     aggregateID,
		ExpectedVersion: expectedVersion,
		Events:          evs,
	}})
}

// AppendToStreams атомарно добавляет события в несколько потоков.
// Сначала проверяются версии всех потоков, затем выполняется запись:
// при конфликте любого потока не меняется ни один.
func (s *InMemoryEventStore) AppendToStreams(ctx context.Context, appends []StreamAppend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range appends {
		if a.ExpectedVersion < 0 {
			return fmt.Errorf("stream %s: %w", a.AggregateID, ErrInvalidVersion)
		}
		currentVersion := s.currentVersionLocked(a.AggregateID)
		if a.ExpectedVersion != currentVersion {
			return fmt.Errorf("stream %s: %w: expected %d, got %d",
				a.AggregateID, ErrConcurrencyConflict, a.ExpectedVersion, currentVersion)
		}
	}

	for _, a := range appends {
		stream := s.streams[a.AggregateID]
		for i, event := range a.Events {
			s.position++
			stream = append(stream, StoredEvent{
				ID:          event.EventID(),
				AggregateID: a.AggregateID,
				EventType:   event.EventType(),
				EventData:   event,
				Version:     a.ExpectedVersion + int64(i) + 1,
				Position:    s.position,
				OccurredAt:  event.OccurredAt(),
				CreatedAt:   time.Now().UTC(),
			})
		}
		s.streams[a.AggregateID] = stream
		s.allEvents = append(s.allEvents, stream[len(stream)-len(a.Events):]...)
	}

	return nil
}

func (s *InMemoryEventStore) currentVersionLocked(aggregateID string) int64 {
	stream := s.streams[aggregateID]
	if len(stream) == 0 {
		return 0
	}
	return stream[len(stream)-1].Version
}

// GetEvents возвращает события агрегата начиная с указанной версии
func (s *InMemoryEventStore) GetEvents(ctx context.Context, aggregateID string, fromVersion int64) ([]StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream, exists := s.streams[aggregateID]
	if !exists {
		return nil, ErrStreamNotFound
	}

	result := make([]StoredEvent, 0, len(stream))
	for _, event := range stream {
		if event.Version >= fromVersion {
			result = append(result, event)
		}
	}
	return result, nil
}

// GetAllEvents возвращает все события начиная с указанной позиции
func (s *InMemoryEventStore) GetAllEvents(ctx context.Context, fromPosition int64) (<-chan StoredEvent, error) {
	s.mu.RLock()
	snapshot := make([]StoredEvent, len(s.allEvents))
	copy(snapshot, s.allEvents)
	s.mu.RUnlock()

	ch := make(chan StoredEvent, 100)
	go func() {
		defer close(ch)
		for _, event := range snapshot {
			if event.Position < fromPosition {
				continue
			}
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Clear очищает все события (для тестов)
func (s *InMemoryEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = make(map[string][]StoredEvent)
	s.allEvents = make([]StoredEvent, 0)
	s.position = 0
}
