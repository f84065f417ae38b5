package relay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/bankcore/internal/domain"
	"github.com/akriventsev/bankcore/internal/events"
)

func TestMarshalEvent_FlattensPayload(t *testing.T) {
	event := &domain.AccountCreditedEvent{
		BaseEvent: events.NewBaseEvent(domain.EventTypeAccountCredited, "agg-1"),
		Amount:    10000,
	}

	data, err := MarshalEvent(event)
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &envelope))

	assert.Equal(t, event.EventID(), envelope["event_id"])
	assert.Equal(t, domain.EventTypeAccountCredited, envelope["event_type"])
	assert.Equal(t, "agg-1", envelope["aggregate_id"])
	assert.Equal(t, float64(10000), envelope["amount"])
	assert.NotEmpty(t, envelope["occurred_at"])
}

func TestInMemoryPublisher(t *testing.T) {
	publisher := NewInMemoryPublisher()
	ctx := context.Background()

	event := &domain.AccountClosedEvent{
		BaseEvent: events.NewBaseEvent(domain.EventTypeAccountClosed, "agg-1"),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	published := publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventTypeAccountClosed, published[0].EventType())

	publisher.Clear()
	assert.Empty(t, publisher.Published())
}

func TestPublisherFactory(t *testing.T) {
	factory := NewPublisherFactory()

	registered := factory.ListRegistered()
	assert.Contains(t, registered, "nats")
	assert.Contains(t, registered, "kafka")
	assert.Contains(t, registered, "redis")
	assert.Contains(t, registered, "inmemory")

	publisher, err := factory.Create("inmemory", nil)
	require.NoError(t, err)
	assert.NotNil(t, publisher)

	_, err = factory.Create("unknown", nil)
	assert.Error(t, err)

	// NATS без соединения отклоняется
	_, err = factory.Create("nats", NATSPublisherConfig{})
	assert.Error(t, err)

	// Конфигурация неверного типа отклоняется
	_, err = factory.Create("kafka", "not-a-config")
	assert.Error(t, err)
}

func TestCompositePublisher(t *testing.T) {
	first := NewInMemoryPublisher()
	second := NewInMemoryPublisher()
	composite := NewCompositePublisher(first, second)

	event := &domain.AccountClosedEvent{
		BaseEvent: events.NewBaseEvent(domain.EventTypeAccountClosed, "agg-1"),
	}
	require.NoError(t, composite.Publish(context.Background(), event))

	assert.Len(t, first.Published(), 1)
	assert.Len(t, second.Published(), 1)
}
