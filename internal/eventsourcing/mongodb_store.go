package eventsourcing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akriventsev/bankcore/internal/events"
)

// MongoDBEventStoreConfig конфигурация для MongoDB Event Store
type MongoDBEventStoreConfig struct {
	URI         string
	Database    string
	Collection  string
	MaxPoolSize int
	MinPoolSize int
}

// Validate проверяет корректность конфигурации
func (c *MongoDBEventStoreConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("URI cannot be empty")
	}
	if c.Database == "" {
		c.Database = "bankcore"
	}
	if c.Collection == "" {
		c.Collection = "events"
	}
	return nil
}

// DefaultMongoDBEventStoreConfig возвращает конфигурацию по умолчанию
func DefaultMongoDBEventStoreConfig() MongoDBEventStoreConfig {
	return MongoDBEventStoreConfig{
		Database:    "bankcore",
		Collection:  "events",
		MaxPoolSize: 100,
		MinPoolSize: 10,
	}
}

// MongoDBEventStore реализация EventStore для MongoDB.
// Атомарность мультипоточных коммитов обеспечивается session-транзакцией,
// конкурентные записи одной версии отсекает уникальный индекс
// (aggregate_id, version). Требует replica set.
type MongoDBEventStore struct {
	config       MongoDBEventStoreConfig
	client       *mongo.Client
	collection   *mongo.Collection
	deserializer EventDeserializer
}

// NewMongoDBEventStore создает новый MongoDB Event Store
func NewMongoDBEventStore(ctx context.Context, config MongoDBEventStoreConfig, deserializer EventDeserializer) (*MongoDBEventStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb config: %w", err)
	}
	if deserializer == nil {
		return nil, fmt.Errorf("event deserializer is required")
	}

	opts := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(uint64(config.MaxPoolSize)).
		SetMinPoolSize(uint64(config.MinPoolSize))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "aggregate_id", Value: 1}, {Key: "version", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "position", Value: 1}}},
		{Keys: bson.D{{Key: "event_type", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoDBEventStore{
		config:       config,
		client:       client,
		collection:   collection,
		deserializer: deserializer,
	}, nil
}

// Close разрывает соединение с MongoDB
func (s *MongoDBEventStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// AppendEvents добавляет события в поток агрегата
func (s *MongoDBEventStore) AppendEvents(ctx context.Context, aggregateID string, expectedVersion int64, evs []events.Event) error {
	return s.AppendToStreams(ctx, []StreamAppend{{
		AggregateID:     aggregateID,
		ExpectedVersion: expectedVersion,
		Events:          evs,
	}})
}

// AppendToStreams атомарно добавляет события в несколько потоков
// в рамках одной session-транзакции
func (s *MongoDBEventStore) AppendToStreams(ctx context.Context, appends []StreamAppend) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		position, err := s.lastPosition(sc)
		if err != nil {
			return nil, err
		}

		for _, a := range appends {
			if a.ExpectedVersion < 0 {
				return nil, fmt.Errorf("stream %s: %w", a.AggregateID, ErrInvalidVersion)
			}

			currentVersion, err := s.currentVersion(sc, a.AggregateID)
			if err != nil {
				return nil, err
			}
			if a.ExpectedVersion != currentVersion {
				return nil, fmt.Errorf("stream %s: %w: expected %d, got %d",
					a.AggregateID, ErrConcurrencyConflict, a.ExpectedVersion, currentVersion)
			}

			docs := make([]interface{}, len(a.Events))
			for i, event := range a.Events {
				eventData, err := json.Marshal(event)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal event: %w", err)
				}
				position++
				docs[i] = bson.M{
					"event_id":     event.EventID(),
					"aggregate_id": a.AggregateID,
					"event_type":   event.EventType(),
					"event_data":   string(eventData),
					"version":      a.ExpectedVersion + int64(i) + 1,
					"position":     position,
					"occurred_at":  event.OccurredAt(),
					"created_at":   time.Now().UTC(),
				}
			}

			if _, err := s.collection.InsertMany(sc, docs); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return nil, fmt.Errorf("stream %s: %w", a.AggregateID, ErrConcurrencyConflict)
				}
				return nil, fmt.Errorf("failed to insert events: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

func (s *MongoDBEventStore) currentVersion(ctx context.Context, aggregateID string) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var doc struct {
		Version int64 `bson:"version"`
	}
	err := s.collection.FindOne(ctx, bson.M{"aggregate_id": aggregateID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stream version: %w", err)
	}
	return doc.Version, nil
}

func (s *MongoDBEventStore) lastPosition(ctx context.Context) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})
	var doc struct {
		Position int64 `bson:"position"`
	}
	err := s.collection.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last position: %w", err)
	}
	return doc.Position, nil
}

type mongoStoredEvent struct {
	EventID     string    `bson:"event_id"`
	AggregateID string    `bson:"aggregate_id"`
	EventType   string    `bson:"event_type"`
	EventData   string    `bson:"event_data"`
	Version     int64     `bson:"version"`
	Position    int64     `bson:"position"`
	OccurredAt  time.Time `bson:"occurred_at"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (s *MongoDBEventStore) toStoredEvent(doc mongoStoredEvent) (StoredEvent, error) {
	event, err := s.deserializer.DeserializeEvent(doc.EventID, doc.EventType, doc.AggregateID, doc.OccurredAt, []byte(doc.EventData))
	if err != nil {
		return StoredEvent{}, fmt.Errorf("failed to deserialize event %s: %w", doc.EventID, err)
	}
	return StoredEvent{
		ID:          doc.EventID,
		AggregateID: doc.AggregateID,
		EventType:   doc.EventType,
		EventData:   event,
		Version:     doc.Version,
		Position:    doc.Position,
		OccurredAt:  doc.OccurredAt,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

// GetEvents возвращает события агрегата начиная с указанной версии
func (s *MongoDBEventStore) GetEvents(ctx context.Context, aggregateID string, fromVersion int64) ([]StoredEvent, error) {
	filter := bson.M{"aggregate_id": aggregateID, "version": bson.M{"$gte": fromVersion}}
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	var result []StoredEvent
	for cursor.Next(ctx) {
		var doc mongoStoredEvent
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		stored, err := s.toStoredEvent(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, stored)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrStreamNotFound
	}
	return result, nil
}

// GetAllEvents возвращает все события начиная с указанной позиции
func (s *MongoDBEventStore) GetAllEvents(ctx context.Context, fromPosition int64) (<-chan StoredEvent, error) {
	filter := bson.M{"position": bson.M{"$gte": fromPosition}}
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	ch := make(chan StoredEvent, 100)
	go func() {
		defer close(ch)
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc mongoStoredEvent
			if err := cursor.Decode(&doc); err != nil {
				return
			}
			stored, err := s.toStoredEvent(doc)
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

var _ EventStore = (*MongoDBEventStore)(nil)
