package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	Store    StoreConfig
	Badger   BadgerConfig
	Database DatabaseConfig
	Neo4j    Neo4jConfig
	Bacon    BaconConfig
	Otel     OtelConfig

	// Mounts POST /api/v1/admin/reset, which wipes the whole graph.
	AdminResetEnabled bool `env:"ADMIN_RESET_ENABLED" envDefault:"false"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// StoreConfig selects the graph backend.
type StoreConfig struct {
	Backend string `env:"STORE_BACKEND" envDefault:"memory"`

	// Lock stripes per entity kind for the memory backend.
	LockShards int `env:"STORE_LOCK_SHARDS" envDefault:"64"`
}

// BadgerConfig holds settings for the embedded Badger backend
type BadgerConfig struct {
	Path       string        `env:"BADGER_PATH" envDefault:"./data/badger"`
	InMemory   bool          `env:"BADGER_IN_MEMORY" envDefault:"false"`
	SyncWrites bool          `env:"BADGER_SYNC_WRITES" envDefault:"true"`
	GCInterval time.Duration `env:"BADGER_GC_INTERVAL" envDefault:"5m"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"bacon"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"bacon"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
	AutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// Neo4jConfig holds the Bolt connection settings. NEO4J_ADDR keeps the name
// the service has always read from .env.
type Neo4jConfig struct {
	Addr     string `env:"NEO4J_ADDR" envDefault:"bolt://localhost:7687"`
	User     string `env:"NEO4J_USER" envDefault:"neo4j"`
	Password string `env:"NEO4J_PASSWORD" envDefault:""`
	Database string `env:"NEO4J_DATABASE" envDefault:"neo4j"`
}

// URI returns Addr with a bolt:// scheme added when none is given.
func (n *Neo4jConfig) URI() string {
	if strings.Contains(n.Addr, "://") {
		return n.Addr
	}
	return "bolt://" + n.Addr
}

// BaconConfig controls the Bacon number computation.
type BaconConfig struct {
	ReferenceActorID string        `env:"BACON_REFERENCE_ACTOR_ID" envDefault:"nm0000102"`
	QueryTimeout     time.Duration `env:"BACON_QUERY_TIMEOUT" envDefault:"30s"`
	// BatchSize caps the ids sent to the store in one adjacency read.
	BatchSize int `env:"BACON_BATCH_SIZE" envDefault:"500"`
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendBadger, BackendPostgres, BackendNeo4j:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want memory, badger, postgres or neo4j)", c.Store.Backend)
	}
	if c.Store.LockShards < 1 {
		return fmt.Errorf("STORE_LOCK_SHARDS must be positive, got %d", c.Store.LockShards)
	}
	if strings.TrimSpace(c.Bacon.ReferenceActorID) == "" {
		return fmt.Errorf("BACON_REFERENCE_ACTOR_ID must not be empty")
	}
	if c.Bacon.QueryTimeout <= 0 {
		return fmt.Errorf("BACON_QUERY_TIMEOUT must be positive, got %s", c.Bacon.QueryTimeout)
	}
	if c.Bacon.BatchSize < 1 {
		return fmt.Errorf("BACON_BATCH_SIZE must be positive, got %d", c.Bacon.BatchSize)
	}
	if c.Store.Backend == BackendBadger && !c.Badger.InMemory && c.Badger.Path == "" {
		return fmt.Errorf("BADGER_PATH is required unless BADGER_IN_MEMORY is set")
	}
	return nil
}

// IsProduction reports whether debug-only surfaces must stay hidden.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("reference_actor", cfg.Bacon.ReferenceActorID),
	)

	return cfg, nil
}
