package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/akriventsev/bankcore/internal/events"
)

// AccountEventCodec десериализует сохраненные payload событий счета
// обратно в типизированные события для свертки
type AccountEventCodec struct{}

// NewAccountEventCodec создает codec событий счета
func NewAccountEventCodec() *AccountEventCodec {
	return &AccountEventCodec{}
}

// DeserializeEvent восстанавливает типизированное событие из payload
// с исходными идентификатором и временем возникновения из журнала
func (c *AccountEventCodec) DeserializeEvent(eventID, eventType, aggregateID string, occurredAt time.Time, data []byte) (events.Event, error) {
	base := events.RestoreBaseEvent(eventID, eventType, aggregateID, occurredAt)

	switch eventType {
	case EventTypeAccountOpened:
		event := &AccountOpenedEvent{BaseEvent: base}
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
		}
		return event, nil
	case EventTypeAccountCredited:
		event := &AccountCreditedEvent{BaseEvent: base}
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
		}
		return event, nil
	case EventTypeAccountDebited:
		event := &AccountDebitedEvent{BaseEvent: base}
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
		}
		return event, nil
	case EventTypePasswordChanged:
		event := &PasswordChangedEvent{BaseEvent: base}
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
		}
		return event, nil
	case EventTypeOverdraftLimitSet:
		event := &OverdraftLimitSetEvent{BaseEvent: base}
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
		}
		return event, nil
	case EventTypeAccountClosed:
		return &AccountClosedEvent{BaseEvent: base}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}
