// Package config loads service settings from an optional YAML file, a .env
// file and the process environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logger   LoggerConfig   `yaml:"logger"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Retry    RetryConfig    `yaml:"retry"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Stats    StatsConfig    `yaml:"stats"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"   validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"15s"   validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"   validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"   validate:"gt=0"`
}

// LoggerConfig selects the slog level and output format.
type LoggerConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json" validate:"required,oneof=json text"`
}

// SlogLevel maps Level onto slog.
func (c LoggerConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres" validate:"required,oneof=postgres memory"`
}

// PostgresConfig holds connection, pool and row-lock settings.
type PostgresConfig struct {
	Host            string        `yaml:"host"              env:"DB_HOST"              env-default:"localhost"          validate:"required"`
	Port            int           `yaml:"port"              env:"DB_PORT"              env-default:"5432"               validate:"min=1,max=65535"`
	User            string        `yaml:"user"              env:"DB_USER"              env-default:"postgres"           validate:"required"`
	Password        string        `yaml:"password"          env:"DB_PASSWORD"          env-default:"postgres"`
	Database        string        `yaml:"database"          env:"DB_NAME"              env-default:"eventparticipation" validate:"required"`
	SSLMode         string        `yaml:"sslmode"           env:"DB_SSLMODE"           env-default:"disable"            validate:"oneof=disable require verify-ca verify-full"`
	MaxConns        int32         `yaml:"max_conns"         env:"DB_MAX_CONNS"         env-default:"20"                 validate:"min=1"`
	MinConns        int32         `yaml:"min_conns"         env:"DB_MIN_CONNS"         env-default:"2"                  validate:"min=0,ltefield=MaxConns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"                validate:"gt=0"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle"     env:"DB_CONN_MAX_IDLE"     env-default:"5m"                 validate:"gt=0"`
	LockTimeout     time.Duration `yaml:"lock_timeout"      env:"DB_LOCK_TIMEOUT"      env-default:"2s"                 validate:"gte=0"`
	ConnectAttempts int           `yaml:"connect_attempts"  env:"DB_CONNECT_ATTEMPTS"  env-default:"5"                  validate:"min=1"`
}

// DSN builds a libpq-compatible connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RetryConfig bounds retries of lock contention.
type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3"    validate:"min=1"`
	Delay    time.Duration `yaml:"delay"    env:"RETRY_DELAY"    env-default:"50ms" validate:"gte=0"`
	Backoff  float64       `yaml:"backoff"  env:"RETRY_BACKOFF"  env-default:"2"    validate:"gte=1"`
}

// RabbitMQConfig enables lifecycle notifications when URL is set.
type RabbitMQConfig struct {
	URL      string `yaml:"url"      env:"RABBITMQ_URL"      validate:"omitempty,url"`
	Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"events" validate:"required"`
}

// StatsConfig points at the view statistics service. An empty URL disables it.
type StatsConfig struct {
	URL     string        `yaml:"url"     env:"STATS_URL"     validate:"omitempty,url"`
	App     string        `yaml:"app"     env:"STATS_APP"     env-default:"event-participation" validate:"required"`
	Timeout time.Duration `yaml:"timeout" env:"STATS_TIMEOUT" env-default:"2s" validate:"gt=0"`
}

// Load reads the configuration. CONFIG_PATH names an optional YAML file;
// environment variables override it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for main: it panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
