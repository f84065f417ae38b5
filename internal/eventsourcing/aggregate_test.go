package eventsourcing

import (
	"testing"

	"github.com/akriventsev/bankcore/internal/events"
)

// counterAggregate агрегат-счетчик для тестирования
type counterAggregate struct {
	*AggregateRoot
	applied int
}

func newCounterAggregate(id string) *counterAggregate {
	a := &counterAggregate{}
	a.AggregateRoot = NewAggregateRoot(id, a)
	return a
}

func (a *counterAggregate) Apply(event events.Event) error {
	a.applied++
	return nil
}

func TestAggregateRoot_RaiseEvent(t *testing.T) {
	aggregate := newCounterAggregate("agg-1")

	if err := aggregate.RaiseEvent(newMockEvent("test.event", "agg-1")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := aggregate.RaiseEvent(newMockEvent("test.event", "agg-1")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if aggregate.Version() != 2 {
		t.Errorf("Expected version 2, got %d", aggregate.Version())
	}
	if aggregate.applied != 2 {
		t.Errorf("Expected 2 applied events, got %d", aggregate.applied)
	}
	if len(aggregate.UncommittedEvents()) != 2 {
		t.Errorf("Expected 2 uncommitted events, got %d", len(aggregate.UncommittedEvents()))
	}
}

func TestAggregateRoot_LoadFromHistory(t *testing.T) {
	aggregate := newCounterAggregate("agg-1")

	history := []events.Event{
		newMockEvent("test.event", "agg-1"),
		newMockEvent("test.event", "agg-1"),
		newMockEvent("test.event", "agg-1"),
	}
	if err := aggregate.LoadFromHistory(history); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if aggregate.Version() != 3 {
		t.Errorf("Expected version 3, got %d", aggregate.Version())
	}
	// Свертка истории не создает несохраненных событий
	if len(aggregate.UncommittedEvents()) != 0 {
		t.Errorf("Expected no uncommitted events, got %d", len(aggregate.UncommittedEvents()))
	}
}

func TestAggregateRoot_MarkEventsAsCommitted(t *testing.T) {
	aggregate := newCounterAggregate("agg-1")
	_ = aggregate.RaiseEvent(newMockEvent("test.event", "agg-1"))

	aggregate.MarkEventsAsCommitted()

	if len(aggregate.UncommittedEvents()) != 0 {
		t.Errorf("Expected no uncommitted events, got %d", len(aggregate.UncommittedEvents()))
	}
	if aggregate.Version() != 1 {
		t.Errorf("Expected version to stay 1, got %d", aggregate.Version())
	}
}
