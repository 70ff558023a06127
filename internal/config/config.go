package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Game       GameConfig
	Storage    StorageConfig
	Dictionary DictionaryConfig
	Auth       AuthConfig
	Logging    LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Env  string `env:"ENV" envDefault:"development"` // "development" or "production"
}

// GameConfig holds room engine configuration
type GameConfig struct {
	DefaultCapacity   int           `env:"DEFAULT_CAPACITY" envDefault:"4"`
	MaxCapacity       int           `env:"MAX_CAPACITY" envDefault:"12"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"30s"`
	SinkBuffer        int           `env:"SINK_BUFFER" envDefault:"64"`
	SubmitRate        float64       `env:"SUBMIT_RATE" envDefault:"5"` // words per second per connection
	SubmitBurst       int           `env:"SUBMIT_BURST" envDefault:"10"`
}

// StorageConfig selects the snapshot store
type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	Path   string `env:"STORAGE_PATH" envDefault:"wordchain.db"`
}

// DictionaryConfig lists word files as "lang:path,lang:path"
type DictionaryConfig struct {
	Paths string `env:"DICTIONARY_PATHS"`
}

// AuthConfig holds player identity settings
type AuthConfig struct {
	JWTSecret  string `env:"JWT_SECRET"`
	Cookie     string `env:"AUTH_COOKIE" envDefault:"loggedas"`
	AdminToken string `env:"ADMIN_TOKEN"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom loads configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parse but cannot work together
func (c *Config) Validate() error {
	var errs []error
	if c.Game.DefaultCapacity < 1 {
		errs = append(errs, errors.New("DEFAULT_CAPACITY must be at least 1"))
	}
	if c.Game.MaxCapacity < c.Game.DefaultCapacity {
		errs = append(errs, errors.New("MAX_CAPACITY must not be below DEFAULT_CAPACITY"))
	}
	if c.Game.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must be positive"))
	}
	if c.Game.SubmitRate <= 0 || c.Game.SubmitBurst < 1 {
		errs = append(errs, errors.New("SUBMIT_RATE and SUBMIT_BURST must be positive"))
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("STORAGE_PATH is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Logging.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
