// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Store, Postgres, Redis, Cache, Kafka, Ingest, Search, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`

	// RateLimitPerMinute bounds upload and chat requests per client IP;
	// 0 disables limiting.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// Store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// StoreConfig selects where the index record is persisted. The file backend
// writes a single JSON document at Path; the postgres backend keeps it in one
// row of Table identified by Key.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Table   string `yaml:"table"`
	Key     string `yaml:"key"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// Cache backends.
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig controls the query result cache. Size only applies to the
// in-process memory backend.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Size    int    `yaml:"size"`
}

// KafkaConfig holds Kafka broker and topic settings. Analytics is only
// started when Enabled is set.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`

	// Aggregate runs the analytics consumer inside the server. Turn it off
	// when a separate cmd/analytics process owns the consumer group.
	Aggregate bool `yaml:"aggregate"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// IngestConfig bounds document ingestion.
type IngestConfig struct {
	MaxChars       int           `yaml:"maxChars"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	ExtractTimeout time.Duration `yaml:"extractTimeout"`
}

// SearchConfig controls query defaults and limits.
type SearchConfig struct {
	DefaultTopK int `yaml:"defaultTopK"`
	// MaxTopK caps a requested topK; 0 leaves it uncapped.
	MaxTopK int `yaml:"maxTopK"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config suitable for local development: a JSON store file
// in ./data, no external services.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  45 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},

			RateLimitPerMinute: 120,
		},
		Store: StoreConfig{
			Backend: StoreBackendFile,
			Path:    "data/vectorstore.json",
			Table:   "index_records",
			Key:     "default",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Backend: CacheBackendMemory,
			Size:    512,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch-analytics",
			Aggregate:     true,
			Topics: KafkaTopics{
				AnalyticsEvents: "docsearch-analytics",
			},
		},
		Ingest: IngestConfig{
			MaxChars:       1200,
			MaxUploadBytes: 32 << 20,
			ExtractTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			DefaultTopK: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate reports the first configuration value that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendFile:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file backend")
		}
	case StoreBackendPostgres:
		if c.Store.Table == "" || c.Store.Key == "" {
			return errors.New("store.table and store.key are required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Cache.Backend {
	case CacheBackendNone, CacheBackendRedis:
	case CacheBackendMemory:
		if c.Cache.Size <= 0 {
			return errors.New("cache.size must be positive for the memory backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return errors.New("server.rateLimitPerMinute must not be negative")
	}
	if c.Ingest.MaxChars < 1 {
		return errors.New("ingest.maxChars must be at least 1")
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return errors.New("ingest.maxUploadBytes must be positive")
	}
	if c.Search.DefaultTopK < 1 {
		return errors.New("search.defaultTopK must be at least 1")
	}
	if c.Search.MaxTopK < 0 {
		return errors.New("search.maxTopK must not be negative")
	}
	if c.Search.MaxTopK > 0 && c.Search.MaxTopK < c.Search.DefaultTopK {
		return errors.New("search.maxTopK must not be below search.defaultTopK")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("DS_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("DS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("DS_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("DS_KAFKA_AGGREGATE"); v != "" {
		if aggregate, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Aggregate = aggregate
		}
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_INGEST_MAX_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.MaxChars = n
		}
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
