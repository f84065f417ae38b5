// Package relay предоставляет адаптеры для публикации доменных событий
// во внешние системы доставки.
package relay

import (
	"encoding/json"
	"time"

	"github.com/akriventsev/bankcore/internal/events"
)

// MarshalEvent сериализует событие в плоский JSON конверт: базовые поля
// события объединяются с полями payload, payload не может затенять базовые
func MarshalEvent(event events.Event) ([]byte, error) {
	envelope := map[string]interface{}{
		"event_id":     event.EventID(),
		"event_type":   event.EventType(),
		"aggregate_id": event.AggregateID(),
		"occurred_at":  event.OccurredAt().Format(time.RFC3339Nano),
	}

	if metadata := event.Metadata(); metadata != nil {
		envelope["metadata"] = metadata
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	for k, v := range payload {
		if _, exists := envelope[k]; !exists {
			envelope[k] = v
		}
	}

	return json.Marshal(envelope)
}

// RetryConfig политика повторов публикации
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig возвращает политику повторов по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}
