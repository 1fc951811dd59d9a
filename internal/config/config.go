package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Store and cache driver names.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverRemote   = "remote"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development" validate:"oneof=development staging production test"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	AdminKey        string        `env:"ADMIN_KEY"`
	JWTSecret       string        `env:"JWT_SECRET"`

	// Per-client limit on wishlist routes; RATE_LIMIT_RPS=0 disables it
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10" validate:"gte=0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20" validate:"min=1"`

	// Catalog and wishlist backends
	StoreDriver    string `env:"STORE_DRIVER" envDefault:"postgres" validate:"oneof=postgres memory"`
	WishlistDriver string `env:"WISHLIST_DRIVER" envDefault:"postgres" validate:"oneof=postgres memory remote"`
	CacheDriver    string `env:"CACHE_DRIVER" envDefault:"memory" validate:"oneof=memory redis"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432" validate:"min=1,max=65535"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20" validate:"min=1"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2" validate:"min=0"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	RunMigrations         bool  `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379" validate:"min=1,max=65535"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"min=0"`

	// Caches
	ListingCacheTTL  time.Duration `env:"LISTING_CACHE_TTL" envDefault:"30s"`
	WishlistCacheTTL time.Duration `env:"WISHLIST_CACHE_TTL" envDefault:"60s"`

	// Remote wishlist API, used when WISHLIST_DRIVER=remote
	WishlistRemoteURL     string        `env:"WISHLIST_REMOTE_URL" validate:"omitempty,url"`
	WishlistRemoteTimeout time.Duration `env:"WISHLIST_REMOTE_TIMEOUT" envDefault:"5s"`

	// Kafka; empty disables event publishing and consumption
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"storefront"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0" validate:"gte=0,lte=1"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if cfg.WishlistDriver == DriverRemote && cfg.WishlistRemoteURL == "" {
		return nil, fmt.Errorf("WISHLIST_REMOTE_URL is required when WISHLIST_DRIVER=remote")
	}
	return cfg, nil
}

// NeedsPostgres reports whether any configured backend is PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.StoreDriver == DriverPostgres || c.WishlistDriver == DriverPostgres
}

// KafkaEnabled reports whether brokers are configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// RateLimit returns the wishlist route limiter configuration.
func (c *Config) RateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{RPS: c.RateLimitRPS, Burst: c.RateLimitBurst}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
