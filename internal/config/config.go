// Package config loads service configuration from the environment
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// QueueConfig configures one admission queue
type QueueConfig struct {
	QueueSize    int           `env:"QUEUE_SIZE" envDefault:"500"`
	Workers      int           `env:"WORKERS" envDefault:"1"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ImmediateAck bool          `env:"IMMEDIATE_ACK"`
}

// Config is the server configuration
type Config struct {
	HTTPHost string `env:"HTTP_HOST"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`

	Storage         string        `env:"STORAGE" envDefault:"sqlite"`
	DBPath          string        `env:"DB_PATH" envDefault:"data/globaldex.db"`
	DBBusyTimeout   time.Duration `env:"DB_BUSY_TIMEOUT" envDefault:"5s"`
	RedisURL        string        `env:"REDIS_URL"`
	MaxSpecies      int           `env:"MAX_SPECIES" envDefault:"1998"`
	AdminUserAgent  string        `env:"ADMIN_UA" envDefault:"Global-Dex-Admin"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Register         QueueConfig   `envPrefix:"REGISTER_"`
	Capture          QueueConfig   `envPrefix:"CAPTURE_"`
	UncaptureTimeout time.Duration `env:"UNCAPTURE_TIMEOUT" envDefault:"60s"`

	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"1m"`
	CheckpointInterval  time.Duration `env:"CHECKPOINT_INTERVAL" envDefault:"1h"`

	Backup BackupConfig `envPrefix:"BACKUP_"`
}

// BackupConfig holds the object storage target for database backups
type BackupConfig struct {
	Bucket          string `env:"BUCKET"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	Region          string `env:"REGION" envDefault:"auto"`
}

// Prefix is prepended to every variable name
const Prefix = "GLOBALDEX_"

// Load reads an optional .env file, then parses the environment
func Load(dotenvPaths ...string) (Config, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, path := range dotenvPaths {
		// A missing file is fine; the environment may be complete on its own
		_ = godotenv.Load(path)
	}
	return Parse()
}

// Parse reads configuration from environment variables
func Parse() (Config, error) {
	cfg := Config{
		// Register acknowledges immediately unless told otherwise
		Register: QueueConfig{ImmediateAck: true},
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	c.Register.Workers = max(c.Register.Workers, 1)
	c.Capture.Workers = max(c.Capture.Workers, 1)
	c.Register.QueueSize = max(c.Register.QueueSize, 1)
	c.Capture.QueueSize = max(c.Capture.QueueSize, 1)
}

// Validate checks cross-field requirements
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("%sDB_PATH is required for sqlite storage", Prefix)
		}
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%sREDIS_URL is required for redis storage", Prefix)
		}
	default:
		return fmt.Errorf("invalid %sSTORAGE %q: must be sqlite, memory or redis", Prefix, c.Storage)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid %sHTTP_PORT %d", Prefix, c.HTTPPort)
	}
	return nil
}

// Addr returns the HTTP listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// AdminConfig is the environment read by the dexadmin tool
type AdminConfig struct {
	ServerURL      string        `env:"ADMIN_SERVER" envDefault:"http://localhost:8080"`
	AdminUserAgent string        `env:"ADMIN_UA" envDefault:"Global-Dex-Admin"`
	DBPath         string        `env:"DB_PATH" envDefault:"data/globaldex.db"`
	DBBusyTimeout  time.Duration `env:"DB_BUSY_TIMEOUT" envDefault:"5s"`

	Backup BackupConfig `envPrefix:"BACKUP_"`
}

// LoadAdmin reads an optional .env file, then parses the admin environment
func LoadAdmin(dotenvPaths ...string) (AdminConfig, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, path := range dotenvPaths {
		_ = godotenv.Load(path)
	}

	var cfg AdminConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return AdminConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
