// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Sync providers
const (
	SyncNone    = "none"
	SyncMemory  = "memory"
	SyncDropbox = "dropbox"
	SyncS3      = "s3"
)

// Server is the server process configuration
type Server struct {
	Host     string     `env:"HOST"`
	Port     int        `env:"PORT" envDefault:"8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"combat-tracker.db"`
	RedisURL    string `env:"REDIS_URL"`
	RedisPrefix string `env:"REDIS_KEY_PREFIX"`

	SyncProvider string  `env:"SYNC_PROVIDER" envDefault:"none"`
	Dropbox      Dropbox `envPrefix:"DROPBOX_"`
	S3           S3      `envPrefix:"S3_"`

	// bcrypt hash of the API key; empty leaves the API open
	APIKeyHash string `env:"COMBAT_API_KEY_HASH"`
}

// Dropbox holds the Dropbox app credentials
type Dropbox struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
	Path         string `env:"PATH" envDefault:"/combat-tracker.json"`
}

// S3 holds the bucket the sync file is kept in
type S3 struct {
	Bucket       string `env:"BUCKET"`
	Key          string `env:"KEY" envDefault:"combat-tracker.json"`
	Region       string `env:"REGION"`
	Endpoint     string `env:"ENDPOINT"`
	UsePathStyle bool   `env:"USE_PATH_STYLE"`
}

// Load reads the configuration from the process environment
func Load() (Server, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables only
func LoadFrom(environ map[string]string) (Server, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Server, error) {
	cfg, err := env.ParseAsWithOptions[Server](opts)
	if err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need
func (c Server) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL required when STORAGE_TYPE=redis"))
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH required when STORAGE_TYPE=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType))
	}

	switch c.SyncProvider {
	case SyncNone, SyncMemory:
	case SyncDropbox:
		if c.Dropbox.ClientID == "" {
			errs = append(errs, errors.New("DROPBOX_CLIENT_ID required when SYNC_PROVIDER=dropbox"))
		}
	case SyncS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET required when SYNC_PROVIDER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SYNC_PROVIDER %q", c.SyncProvider))
	}

	return errors.Join(errs...)
}
