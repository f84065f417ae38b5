// Package metrics предоставляет систему метрик на основе OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics сборщик метрик приложения
type Metrics struct {
	meter             metric.Meter
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram
	eventsTotal       metric.Int64Counter
	errorsTotal       metric.Int64Counter
}

// NewMetrics создает новый сборщик метрик
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("bankcore")

	operationsTotal, err := meter.Int64Counter(
		"bank_operations_total",
		metric.WithDescription("Total number of bank operations processed"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"bank_operation_duration_seconds",
		metric.WithDescription("Bank operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	eventsTotal, err := meter.Int64Counter(
		"account_events_total",
		metric.WithDescription("Total number of account events committed"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"bank_errors_total",
		metric.WithDescription("Total number of failed bank operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:             meter,
		operationsTotal:   operationsTotal,
		operationDuration: operationDuration,
		eventsTotal:       eventsTotal,
		errorsTotal:       errorsTotal,
	}, nil
}

// RecordOperation фиксирует выполнение операции банка
func (m *Metrics) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.operationsTotal.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordEvent фиксирует зафиксированное доменное событие
func (m *Metrics) RecordEvent(ctx context.Context, eventType string) {
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
