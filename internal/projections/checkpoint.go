// Package projections предоставляет read model проекции над потоком
// событий счетов.
package projections

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckpointStore хранит позиции обработанных событий по проекциям
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, projectionName string, position int64) error
	GetCheckpoint(ctx context.Context, projectionName string) (int64, error)
	DeleteCheckpoint(ctx context.Context, projectionName string) error
}

// InMemoryCheckpointStore реализация CheckpointStore в памяти
type InMemoryCheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]int64
}

// NewInMemoryCheckpointStore создает in-memory checkpoint store
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{
		checkpoints: make(map[string]int64),
	}
}

func (s *InMemoryCheckpointStore) SaveCheckpoint(ctx context.Context, projectionName string, position int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[projectionName] = position
	return nil
}

func (s *InMemoryCheckpointStore) GetCheckpoint(ctx context.Context, projectionName string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[projectionName], nil
}

func (s *InMemoryCheckpointStore) DeleteCheckpoint(ctx context.Context, projectionName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, projectionName)
	return nil
}

// PostgresCheckpointStore реализация CheckpointStore для PostgreSQL
type PostgresCheckpointStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCheckpointStore создает PostgreSQL checkpoint store
func NewPostgresCheckpointStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresCheckpointStore, error) {
	store := &PostgresCheckpointStore{pool: pool}
	if err := store.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure checkpoints table: %w", err)
	}
	return store, nil
}

func (s *PostgresCheckpointStore) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS projection_checkpoints (
			projection_name VARCHAR(255) PRIMARY KEY,
			position BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresCheckpointStore) SaveCheckpoint(ctx context.Context, projectionName string, position int64) error {
	query := `
		INSERT INTO projection_checkpoints (projection_name, position, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (projection_name)
		DO UPDATE SET position = $2, updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query, projectionName, position)
	return err
}

func (s *PostgresCheckpointStore) GetCheckpoint(ctx context.Context, projectionName string) (int64, error) {
	query := `SELECT position FROM projection_checkpoints WHERE projection_name = $1`
	var position int64
	err := s.pool.QueryRow(ctx, query, projectionName).Scan(&position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return position, nil
}

func (s *PostgresCheckpointStore) DeleteCheckpoint(ctx context.Context, projectionName string) error {
	query := `DELETE FROM projection_checkpoints WHERE projection_name = $1`
	_, err := s.pool.Exec(ctx, query, projectionName)
	return err
}
