// Package config загружает конфигурацию сервиса из YAML файла
// и переменных окружения.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration обертка time.Duration с поддержкой YAML строк вида "15m"
type Duration time.Duration

// UnmarshalYAML разбирает duration из YAML
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std возвращает значение как time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	Mode     string `yaml:"mode"`
}

// PostgresConfig параметры подключения к PostgreSQL
type PostgresConfig struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
}

// MongoDBConfig параметры подключения к MongoDB
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// EventStoreConfig конфигурация хранилища событий
type EventStoreConfig struct {
	Backend  string         `yaml:"backend"` // inmemory, postgres, mongodb
	Postgres PostgresConfig `yaml:"postgres"`
	MongoDB  MongoDBConfig  `yaml:"mongodb"`
}

// NATSConfig параметры подключения к NATS
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// KafkaConfig параметры подключения к Kafka
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig параметры подключения к Redis
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

// PublisherConfig конфигурация публикации событий
type PublisherConfig struct {
	Type  string      `yaml:"type"` // nats, kafka, redis, inmemory, none
	NATS  NATSConfig  `yaml:"nats"`
	Kafka KafkaConfig `yaml:"kafka"`
	Redis RedisConfig `yaml:"redis"`
}

// AuthConfig конфигурация выдачи токенов
type AuthConfig struct {
	Secret   string   `yaml:"secret"`
	Issuer   string   `yaml:"issuer"`
	TokenTTL Duration `yaml:"token_ttl"`
}

// MetricsConfig конфигурация метрик
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig конфигурация трассировки
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// ProjectionsConfig конфигурация проекций
type ProjectionsConfig struct {
	Enabled           bool     `yaml:"enabled"`
	PollInterval      Duration `yaml:"poll_interval"`
	CheckpointBackend string   `yaml:"checkpoint_backend"` // inmemory, postgres
}

// LoggingConfig конфигурация логирования
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Config конфигурация сервиса
type Config struct {
	ServiceName    string            `yaml:"service_name"`
	ServiceVersion string            `yaml:"service_version"`
	Server         ServerConfig      `yaml:"server"`
	EventStore     EventStoreConfig  `yaml:"event_store"`
	Publisher      PublisherConfig   `yaml:"publisher"`
	Auth           AuthConfig        `yaml:"auth"`
	Metrics        MetricsConfig     `yaml:"metrics"`
	Tracing        TracingConfig     `yaml:"tracing"`
	Projections    ProjectionsConfig `yaml:"projections"`
	Logging        LoggingConfig     `yaml:"logging"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		ServiceName:    "bankcore",
		ServiceVersion: "0.1.0",
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/api/v1",
			Mode:     "release",
		},
		EventStore: EventStoreConfig{
			Backend: "inmemory",
			Postgres: PostgresConfig{
				Schema: "public",
				Table:  "event_store",
			},
			MongoDB: MongoDBConfig{
				Database:   "bankcore",
				Collection: "events",
			},
		},
		Publisher: PublisherConfig{
			Type: "inmemory",
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				SubjectPrefix: "bank.events",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "bank.account-events",
			},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Stream: "bank:account-events",
			},
		},
		Auth: AuthConfig{
			Issuer:   "bankcore",
			TokenTTL: Duration(15 * time.Minute),
		},
		Metrics: MetricsConfig{Enabled: true},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
			Environment:  "development",
		},
		Projections: ProjectionsConfig{
			Enabled:           true,
			PollInterval:      Duration(500 * time.Millisecond),
			CheckpointBackend: "inmemory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load загружает конфигурацию: defaults, затем YAML файл, затем env
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv накладывает переменные окружения поверх конфигурации
func (c *Config) applyEnv() {
	if v := os.Getenv("BANKCORE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BANKCORE_EVENT_STORE_BACKEND"); v != "" {
		c.EventStore.Backend = v
	}
	if v := os.Getenv("BANKCORE_POSTGRES_DSN"); v != "" {
		c.EventStore.Postgres.DSN = v
	}
	if v := os.Getenv("BANKCORE_MONGODB_URI"); v != "" {
		c.EventStore.MongoDB.URI = v
	}
	if v := os.Getenv("BANKCORE_PUBLISHER_TYPE"); v != "" {
		c.Publisher.Type = v
	}
	if v := os.Getenv("BANKCORE_NATS_URL"); v != "" {
		c.Publisher.NATS.URL = v
	}
	if v := os.Getenv("BANKCORE_REDIS_ADDR"); v != "" {
		c.Publisher.Redis.Addr = v
	}
	if v := os.Getenv("BANKCORE_JWT_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("BANKCORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.EventStore.Backend {
	case "inmemory":
	case "postgres":
		if c.EventStore.Postgres.DSN == "" {
			return fmt.Errorf("postgres DSN is required for postgres backend")
		}
	case "mongodb":
		if c.EventStore.MongoDB.URI == "" {
			return fmt.Errorf("mongodb URI is required for mongodb backend")
		}
	default:
		return fmt.Errorf("unknown event store backend: %s", c.EventStore.Backend)
	}

	switch c.Publisher.Type {
	case "inmemory", "none":
	case "nats":
		if c.Publisher.NATS.URL == "" {
			return fmt.Errorf("NATS URL is required for nats publisher")
		}
	case "kafka":
		if len(c.Publisher.Kafka.Brokers) == 0 {
			return fmt.Errorf("at least one Kafka broker is required for kafka publisher")
		}
	case "redis":
		if c.Publisher.Redis.Addr == "" {
			return fmt.Errorf("Redis addr is required for redis publisher")
		}
	default:
		return fmt.Errorf("unknown publisher type: %s", c.Publisher.Type)
	}

	if c.Projections.Enabled {
		switch c.Projections.CheckpointBackend {
		case "", "inmemory":
		case "postgres":
			if c.EventStore.Postgres.DSN == "" {
				return fmt.Errorf("postgres DSN is required for postgres checkpoint backend")
			}
		default:
			return fmt.Errorf("unknown checkpoint backend: %s", c.Projections.CheckpointBackend)
		}
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required")
	}
	if c.Auth.TokenTTL.Std() <= 0 {
		return fmt.Errorf("auth token TTL must be positive")
	}

	return nil
}
