package projections

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akriventsev/bankcore/internal/eventsourcing"
)

// Projection интерфейс read model проекции
type Projection interface {
	Name() string
	HandleEvent(ctx context.Context, event eventsourcing.StoredEvent) error
	Reset(ctx context.Context) error
}

// RunnerConfig конфигурация цикла обработки проекции
type RunnerConfig struct {
	PollInterval time.Duration
}

// DefaultRunnerConfig возвращает конфигурацию runner по умолчанию
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PollInterval: 500 * time.Millisecond,
	}
}

// Runner прогоняет поток событий хранилища через проекцию.
// Позиция последнего обработанного события сохраняется в checkpoint store,
// после перезапуска обработка продолжается с сохраненной позиции.
type Runner struct {
	projection      Projection
	eventStore      eventsourcing.EventStore
	checkpointStore CheckpointStore
	config          RunnerConfig
	logger          *zap.Logger

	mu      sync.Mutex
	stopped chan struct{}
	done    chan struct{}
	running bool
}

// NewRunner создает runner проекции
func NewRunner(projection Projection, eventStore eventsourcing.EventStore, checkpointStore CheckpointStore, config RunnerConfig, logger *zap.Logger) *Runner {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRunnerConfig().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		projection:      projection,
		eventStore:      eventStore,
		checkpointStore: checkpointStore,
		config:          config,
		logger:          logger.With(zap.String("projection", projection.Name())),
		stopped:         make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start запускает фоновый цикл обработки
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("projection runner already started")
	}
	r.running = true

	go r.run(ctx)
	return nil
}

// Stop останавливает цикл и дожидается его завершения
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopped)
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CatchUp однократно обрабатывает все накопленные события до конца потока
func (r *Runner) CatchUp(ctx context.Context) error {
	return r.processBatch(ctx)
}

// Rebuild сбрасывает проекцию и переигрывает весь поток с начала
func (r *Runner) Rebuild(ctx context.Context) error {
	if err := r.projection.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset projection: %w", err)
	}
	if err := r.checkpointStore.DeleteCheckpoint(ctx, r.projection.Name()); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return r.processBatch(ctx)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopped:
			return
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				r.logger.Warn("projection batch failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) processBatch(ctx context.Context) error {
	position, err := r.checkpointStore.GetCheckpoint(ctx, r.projection.Name())
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	// Позиции начинаются с 1, checkpoint хранит последнюю обработанную
	eventsChan, err := r.eventStore.GetAllEvents(ctx, position+1)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	for event := range eventsChan {
		if err := r.projection.HandleEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to handle event %s: %w", event.ID, err)
		}
		if err := r.checkpointStore.SaveCheckpoint(ctx, r.projection.Name(), event.Position); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}
	return nil
}
