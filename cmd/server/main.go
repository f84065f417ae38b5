// Сервер банковского API поверх Event Sourced ядра.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akriventsev/bankcore/internal/api"
	"github.com/akriventsev/bankcore/internal/application"
	"github.com/akriventsev/bankcore/internal/config"
	"github.com/akriventsev/bankcore/internal/domain"
	"github.com/akriventsev/bankcore/internal/events"
	"github.com/akriventsev/bankcore/internal/eventsourcing"
	"github.com/akriventsev/bankcore/internal/logging"
	"github.com/akriventsev/bankcore/internal/metrics"
	"github.com/akriventsev/bankcore/internal/observability"
	"github.com/akriventsev/bankcore/internal/projections"
	"github.com/akriventsev/bankcore/internal/relay"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bankcore: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	tracing, err := observability.NewTracingManager(observability.TracingConfig{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.ServiceVersion,
		Exporter:         cfg.Tracing.Exporter,
		ExporterEndpoint: cfg.Tracing.Endpoint,
		SamplingRate:     cfg.Tracing.SamplingRate,
		Environment:      cfg.Tracing.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}

	// Metrics
	var metricsHandler http.Handler
	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		provider, handler, err := metrics.Setup(ctx, metrics.SetupConfig{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: cfg.ServiceVersion,
		})
		if err != nil {
			return fmt.Errorf("failed to setup metrics: %w", err)
		}
		defer func() { _ = provider.Shutdown(context.Background()) }()

		metricsHandler = handler
		appMetrics, err = metrics.NewMetrics()
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	// Event store
	codec := domain.NewAccountEventCodec()
	store, err := buildEventStore(ctx, cfg, codec)
	if err != nil {
		return fmt.Errorf("failed to create event store: %w", err)
	}

	// Publisher
	publisher, err := buildPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	// Repository и сервис банка
	hasher := domain.NewSHA512PasswordHasher()
	repo := eventsourcing.NewRepository(store, func(id string) *domain.Account {
		return domain.NewAccount(id, hasher)
	}).WithLogger(logger)
	if publisher != nil {
		repo.WithPublisher(publisher)
	}
	if appMetrics != nil {
		repo.WithMetrics(appMetrics)
	}

	bank := application.NewBank(repo, hasher, logger)
	if appMetrics != nil {
		bank.WithMetrics(appMetrics)
	}

	// Проекция сводки счетов
	var summary *projections.AccountSummaryProjection
	var runner *projections.Runner
	if cfg.Projections.Enabled {
		checkpoints, err := buildCheckpointStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create checkpoint store: %w", err)
		}
		summary = projections.NewAccountSummaryProjection()
		runner = projections.NewRunner(summary, store, checkpoints,
			projections.RunnerConfig{PollInterval: cfg.Projections.PollInterval.Std()}, logger)
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start projection runner: %w", err)
		}
	}

	// HTTP API
	issuer, err := api.NewTokenIssuer(api.AuthConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL.Std(),
	})
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	handler := api.NewHandler(bank, issuer, summary, logger)
	server := api.NewServer(api.ServerConfig{
		Port:          cfg.Server.Port,
		BasePath:      cfg.Server.BasePath,
		Mode:          cfg.Server.Mode,
		EnableTracing: cfg.Tracing.Enabled,
		ServiceName:   cfg.ServiceName,
	}, handler, issuer, metricsHandler, logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	logger.Info("bankcore started",
		zap.String("event_store", cfg.EventStore.Backend),
		zap.String("publisher", cfg.Publisher.Type),
		zap.Int("port", cfg.Server.Port))

	// Ожидание сигнала завершения
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if runner != nil {
		if err := runner.Stop(shutdownCtx); err != nil {
			logger.Warn("projection runner shutdown failed", zap.Error(err))
		}
	}
	if err := tracing.Stop(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}

	return nil
}

func buildEventStore(ctx context.Context, cfg *config.Config, codec eventsourcing.EventDeserializer) (eventsourcing.EventStore, error) {
	switch cfg.EventStore.Backend {
	case "inmemory":
		return eventsourcing.NewInMemoryEventStore(), nil
	case "postgres":
		return eventsourcing.NewPostgresEventStore(ctx, eventsourcing.PostgresEventStoreConfig{
			DSN:        cfg.EventStore.Postgres.DSN,
			SchemaName: cfg.EventStore.Postgres.Schema,
			TableName:  cfg.EventStore.Postgres.Table,
		}, codec)
	case "mongodb":
		return eventsourcing.NewMongoDBEventStore(ctx, eventsourcing.MongoDBEventStoreConfig{
			URI:        cfg.EventStore.MongoDB.URI,
			Database:   cfg.EventStore.MongoDB.Database,
			Collection: cfg.EventStore.MongoDB.Collection,
		}, codec)
	default:
		return nil, fmt.Errorf("unknown event store backend: %s", cfg.EventStore.Backend)
	}
}

func buildCheckpointStore(ctx context.Context, cfg *config.Config) (projections.CheckpointStore, error) {
	switch cfg.Projections.CheckpointBackend {
	case "", "inmemory":
		return projections.NewInMemoryCheckpointStore(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.EventStore.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return projections.NewPostgresCheckpointStore(ctx, pool)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Projections.CheckpointBackend)
	}
}

func buildPublisher(cfg *config.Config) (events.EventPublisher, error) {
	factory := relay.NewPublisherFactory()

	switch cfg.Publisher.Type {
	case "none":
		return nil, nil
	case "inmemory":
		return factory.Create("inmemory", nil)
	case "nats":
		conn, err := nats.Connect(cfg.Publisher.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		natsConfig := relay.DefaultNATSPublisherConfig()
		natsConfig.Conn = conn
		if cfg.Publisher.NATS.SubjectPrefix != "" {
			natsConfig.SubjectPrefix = cfg.Publisher.NATS.SubjectPrefix
		}
		return factory.Create("nats", natsConfig)
	case "kafka":
		kafkaConfig := relay.DefaultKafkaPublisherConfig()
		kafkaConfig.Brokers = cfg.Publisher.Kafka.Brokers
		if cfg.Publisher.Kafka.Topic != "" {
			kafkaConfig.Topic = cfg.Publisher.Kafka.Topic
		}
		return factory.Create("kafka", kafkaConfig)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Publisher.Redis.Addr,
			Password: cfg.Publisher.Redis.Password,
			DB:       cfg.Publisher.Redis.DB,
		})
		redisConfig := relay.DefaultRedisPublisherConfig()
		redisConfig.Client = client
		if cfg.Publisher.Redis.Stream != "" {
			redisConfig.Stream = cfg.Publisher.Redis.Stream
		}
		return factory.Create("redis", redisConfig)
	default:
		return nil, fmt.Errorf("unknown publisher type: %s", cfg.Publisher.Type)
	}
}
