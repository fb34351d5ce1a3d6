// Package config centralizes environment configuration so main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration, parsed from environment variables.
type Config struct {
	Addr          string `env:"CHARTER_ADDR" envDefault:":8080"`
	LogLevel      string `env:"CHARTER_LOG_LEVEL" envDefault:"info"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Blob      BlobConfig
	RateLimit RateLimitConfig
}

// PostgresConfig configures the relational store. An empty DSN selects the
// in-memory stores (local development and tests).
type PostgresConfig struct {
	DSN          string        `env:"POSTGRES_DSN"`
	MaxOpenConns int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnLifetime time.Duration `env:"POSTGRES_CONN_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the rate-limit backend. An empty URL selects the
// in-memory limiter.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the audit event sink. Empty brokers disable the
// Kafka publisher; events still land in the audit store.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"charter.audit"`
}

// BlobConfig configures proof-of-payment storage. An empty bucket selects the
// in-memory blob store.
type BlobConfig struct {
	Bucket       string        `env:"BLOB_BUCKET"`
	Region       string        `env:"BLOB_REGION" envDefault:"us-east-1"`
	KeyPrefix    string        `env:"BLOB_KEY_PREFIX" envDefault:"proofs/"`
	URLTTL       time.Duration `env:"BLOB_URL_TTL" envDefault:"15m"`
	MaxProofSize int64         `env:"BLOB_MAX_PROOF_SIZE" envDefault:"5242880"`
}

// RateLimitConfig bounds claim submissions and proof uploads per submitter.
type RateLimitConfig struct {
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	Limit  int           `env:"RATE_LIMIT_MAX" envDefault:"10"`
}

// FromEnv parses configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
