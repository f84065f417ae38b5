package relay

import (
	"context"
	"sync"

	"github.com/akriventsev/bankcore/internal/events"
)

// InMemoryPublisher накапливает опубликованные события в памяти.
// Используется в тестах и как fallback при отсутствии внешнего брокера.
type InMemoryPublisher struct {
	mu        sync.RWMutex
	published []events.Event
}

// NewInMemoryPublisher создает in-memory publisher
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

// Publish сохраняет событие
func (p *InMemoryPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

// Published возвращает копию списка опубликованных событий
func (p *InMemoryPublisher) Published() []events.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	result := make([]events.Event, len(p.published))
	copy(result, p.published)
	return result
}

// Clear очищает список опубликованных событий
func (p *InMemoryPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = nil
}
