package eventsourcing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/bankcore/internal/events"
)

// PostgresEventStoreConfig конфигурация для PostgreSQL Event Store
type PostgresEventStoreConfig struct {
	DSN        string
	SchemaName string
	TableName  string
}

// Validate проверяет корректность конфигурации
func (c *PostgresEventStoreConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if c.SchemaName == "" {
		c.SchemaName = "public"
	}
	if c.TableName == "" {
		c.TableName = "event_store"
	}
	return nil
}

// DefaultPostgresEventStoreConfig возвращает конфигурацию по умолчанию
func DefaultPostgresEventStoreConfig() PostgresEventStoreConfig {
	return PostgresEventStoreConfig{
		SchemaName: "public",
		TableName:  "event_store",
	}
}

// PostgresEventStore реализация EventStore для PostgreSQL.
// Оптимистичная конкурентность обеспечивается проверкой версии внутри
// транзакции и уникальным индексом (aggregate_id, version).
type PostgresEventStore struct {
	config       PostgresEventStoreConfig
	pool         *pgxpool.Pool
	deserializer EventDeserializer
}

// NewPostgresEventStore создает новый PostgreSQL Event Store
func NewPostgresEventStore(ctx context.Context, config PostgresEventStoreConfig, deserializer EventDeserializer) (*PostgresEventStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	if deserializer == nil {
		return nil, fmt.Errorf("event deserializer is required")
	}

	pool, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &PostgresEventStore{
		config:       config,
		pool:         pool,
		deserializer: deserializer,
	}, nil
}

// Close закрывает пул соединений
func (s *PostgresEventStore) Close() {
	s.pool.Close()
}

func (s *PostgresEventStore) tableName() string {
	return fmt.Sprintf("%s.%s", s.config.SchemaName, s.config.TableName)
}

// AppendEvents добавляет события в поток агрегата
func (s *PostgresEventStore) AppendEvents(ctx context.Context, aggregateID string, expectedVersion int64, evs []events.Event) error {
	return s.AppendToStreams(ctx, []StreamAppend{{
		AggregateID:     aggregateID,
		ExpectedVersion: expectedVersion,
		Events:          evs,
	}})
}

// AppendToStreams атомарно добавляет события в несколько потоков
// в рамках одной транзакции
func (s *PostgresEventStore) AppendToStreams(ctx context.Context, appends []StreamAppend) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	checkQuery := fmt.Sprintf(
		"SELECT COALESCE(MAX(version), 0) FROM %s WHERE aggregate_id = $1", s.tableName())
	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (event_id, aggregate_id, event_type, event_data, version, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tableName())

	for _, a := range appends {
		if a.ExpectedVersion < 0 {
			return fmt.Errorf("stream %s: %w", a.AggregateID, ErrInvalidVersion)
		}

		var currentVersion int64
		if err := tx.QueryRow(ctx, checkQuery, a.AggregateID).Scan(&currentVersion); err != nil {
			return fmt.Errorf("failed to check version: %w", err)
		}
		if a.ExpectedVersion != currentVersion {
			return fmt.Errorf("stream %s: %w: expected %d, got %d",
				a.AggregateID, ErrConcurrencyConflict, a.ExpectedVersion, currentVersion)
		}

		for i, event := range a.Events {
			eventData, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			_, err = tx.Exec(ctx, insertQuery,
				event.EventID(),
				a.AggregateID,
				event.EventType(),
				eventData,
				a.ExpectedVersion+int64(i)+1,
				event.OccurredAt(),
			)
			if err != nil {
				// Параллельная транзакция успела записать ту же версию
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return fmt.Errorf("stream %s: %w", a.AggregateID, ErrConcurrencyConflict)
				}
				return fmt.Errorf("failed to insert event: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// GetEvents возвращает события агрегата начиная с указанной версии
func (s *PostgresEventStore) GetEvents(ctx context.Context, aggregateID string, fromVersion int64) ([]StoredEvent, error) {
	query := fmt.Sprintf(`
		SELECT event_id, aggregate_id, event_type, event_data, version, position, occurred_at, created_at
		FROM %s
		WHERE aggregate_id = $1 AND version >= $2
		ORDER BY version ASC
	`, s.tableName())

	rows, err := s.pool.Query(ctx, query, aggregateID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	result, err := s.scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrStreamNotFound
	}
	return result, nil
}

// GetAllEvents возвращает все события начиная с указанной позиции
func (s *PostgresEventStore) GetAllEvents(ctx context.Context, fromPosition int64) (<-chan StoredEvent, error) {
	query := fmt.Sprintf(`
		SELECT event_id, aggregate_id, event_type, event_data, version, position, occurred_at, created_at
		FROM %s
		WHERE position >= $1
		ORDER BY position ASC
	`, s.tableName())

	rows, err := s.pool.Query(ctx, query, fromPosition)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	ch := make(chan StoredEvent, 100)
	go func() {
		defer close(ch)
		defer rows.Close()

		for rows.Next() {
			stored, err := s.scanEvent(rows)
			if err != nil {
				return
			}
			select {
			case ch <- stored:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *PostgresEventStore) scanEvents(rows pgx.Rows) ([]StoredEvent, error) {
	var result []StoredEvent
	for rows.Next() {
		stored, err := s.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return result, nil
}

func (s *PostgresEventStore) scanEvent(rows pgx.Rows) (StoredEvent, error) {
	var stored StoredEvent
	var eventData []byte

	err := rows.Scan(
		&stored.ID,
		&stored.AggregateID,
		&stored.EventType,
		&eventData,
		&stored.Version,
		&stored.Position,
		&stored.OccurredAt,
		&stored.CreatedAt,
	)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("failed to scan event: %w", err)
	}

	event, err := s.deserializer.DeserializeEvent(stored.ID, stored.EventType, stored.AggregateID, stored.OccurredAt, eventData)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("failed to deserialize event %s: %w", stored.ID, err)
	}
	stored.EventData = event

	return stored, nil
}

var _ EventStore = (*PostgresEventStore)(nil)
