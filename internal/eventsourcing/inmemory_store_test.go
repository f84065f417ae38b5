package eventsourcing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akriventsev/bankcore/internal/events"
)

// mockEvent событие для тестирования
type mockEvent struct {
	eventID     string
	eventType   string
	aggregateID string
	occurredAt  time.Time
	metadata    events.EventMetadata
}

func (e *mockEvent) EventID() string                { return e.eventID }
func (e *mockEvent) EventType() string              { return e.eventType }
func (e *mockEvent) OccurredAt() time.Time          { return e.occurredAt }
func (e *mockEvent) AggregateID() string            { return e.aggregateID }
func (e *mockEvent) Metadata() events.EventMetadata { return e.metadata }

var mockEventSeq int

func newMockEvent(eventType, aggregateID string) *mockEvent {
	mockEventSeq++
	return &mockEvent{
		eventID:     fmt.Sprintf("event-%d", mockEventSeq),
		eventType:   eventType,
		aggregateID: aggregateID,
		occurredAt:  time.Now().UTC(),
		metadata:    make(events.EventMetadata),
	}
}

func TestInMemoryEventStore_AppendEvents(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	evs := []events.Event{
		newMockEvent("test.event", "agg-1"),
		newMockEvent("test.event", "agg-1"),
	}

	if err := store.AppendEvents(ctx, "agg-1", 0, evs); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored, err := store.GetEvents(ctx, "agg-1", 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("Expected 2 events, got %d", len(stored))
	}
	if stored[0].Version != 1 || stored[1].Version != 2 {
		t.Errorf("Expected versions 1 and 2, got %d and %d", stored[0].Version, stored[1].Version)
	}
}

func TestInMemoryEventStore_ConcurrencyConflict(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	if err := store.AppendEvents(ctx, "agg-1", 0, []events.Event{newMockEvent("test.event", "agg-1")}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Повторная запись с той же ожидаемой версией должна конфликтовать
	err := store.AppendEvents(ctx, "agg-1", 0, []events.Event{newMockEvent("test.event", "agg-1")})
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Errorf("Expected ErrConcurrencyConflict, got %v", err)
	}

	stored, _ := store.GetEvents(ctx, "agg-1", 0)
	if len(stored) != 1 {
		t.Errorf("Expected stream to be unchanged with 1 event, got %d", len(stored))
	}
}

func TestInMemoryEventStore_GetEvents_StreamNotFound(t *testing.T) {
	store := NewInMemoryEventStore()

	_, err := store.GetEvents(context.Background(), "missing", 0)
	if !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("Expected ErrStreamNotFound, got %v", err)
	}
}

func TestInMemoryEventStore_AppendToStreams_AllOrNothing(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	if err := store.AppendEvents(ctx, "agg-2", 0, []events.Event{newMockEvent("test.event", "agg-2")}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Вторая запись конфликтует, первая не должна попасть в хранилище
	err := store.AppendToStreams(ctx, []StreamAppend{
		{AggregateID: "agg-1", ExpectedVersion: 0, Events: []events.Event{newMockEvent("test.event", "agg-1")}},
		{AggregateID: "agg-2", ExpectedVersion: 0, Events: []events.Event{newMockEvent("test.event", "agg-2")}},
	})
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("Expected ErrConcurrencyConflict, got %v", err)
	}

	if _, err := store.GetEvents(ctx, "agg-1", 0); !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("Expected agg-1 stream to not exist, got %v", err)
	}
	stored, _ := store.GetEvents(ctx, "agg-2", 0)
	if len(stored) != 1 {
		t.Errorf("Expected agg-2 stream to be unchanged with 1 event, got %d", len(stored))
	}
}

func TestInMemoryEventStore_AppendToStreams_MultipleStreams(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	err := store.AppendToStreams(ctx, []StreamAppend{
		{AggregateID: "agg-1", ExpectedVersion: 0, Events: []events.Event{newMockEvent("test.debited", "agg-1")}},
		{AggregateID: "agg-2", ExpectedVersion: 0, Events: []events.Event{newMockEvent("test.credited", "agg-2")}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, id := range []string{"agg-1", "agg-2"} {
		stored, err := store.GetEvents(ctx, id, 0)
		if err != nil {
			t.Fatalf("Expected no error for %s, got %v", id, err)
		}
		if len(stored) != 1 {
			t.Errorf("Expected 1 event in %s, got %d", id, len(stored))
		}
	}
}

func TestInMemoryEventStore_InvalidVersion(t *testing.T) {
	store := NewInMemoryEventStore()

	err := store.AppendEvents(context.Background(), "agg-1", -1, []events.Event{newMockEvent("test.event", "agg-1")})
	if !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("Expected ErrInvalidVersion, got %v", err)
	}
}

func TestInMemoryEventStore_GetAllEvents(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	_ = store.AppendEvents(ctx, "agg-1", 0, []events.Event{newMockEvent("test.event", "agg-1")})
	_ = store.AppendEvents(ctx, "agg-2", 0, []events.Event{newMockEvent("test.event", "agg-2")})
	_ = store.AppendEvents(ctx, "agg-1", 1, []events.Event{newMockEvent("test.event", "agg-1")})

	ch, err := store.GetAllEvents(ctx, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var positions []int64
	for event := range ch {
		positions = append(positions, event.Position)
	}
	if len(positions) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(positions))
	}
	for i, position := range positions {
		if position != int64(i+1) {
			t.Errorf("Expected position %d at index %d, got %d", i+1, i, position)
		}
	}

	// Чтение с позиции 3 возвращает только последнее событие
	ch, _ = store.GetAllEvents(ctx, 3)
	var tail []StoredEvent
	for event := range ch {
		tail = append(tail, event)
	}
	if len(tail) != 1 || tail[0].Position != 3 {
		t.Errorf("Expected single event at position 3, got %v", tail)
	}
}

func TestInMemoryEventStore_ConcurrentAppends(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = store.AppendEvents(ctx, "agg-1", 0, []events.Event{newMockEvent("test.event", "agg-1")})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrConcurrencyConflict) {
			t.Errorf("Expected ErrConcurrencyConflict, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly 1 writer to succeed, got %d", succeeded)
	}

	stored, _ := store.GetEvents(ctx, "agg-1", 0)
	if len(stored) != 1 {
		t.Errorf("Expected 1 event in stream, got %d", len(stored))
	}
}
