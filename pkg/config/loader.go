package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers understood by Config.Store.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds the client settings shared by the library constructors and deskctl.
type Config struct {
	APIURL   string        `env:"DESK_API_URL" envDefault:"http://localhost:5000/api"`
	Timeout  time.Duration `env:"DESK_TIMEOUT" envDefault:"15s"`
	PageSize int           `env:"DESK_PAGE_SIZE" envDefault:"10"`

	Store     string `env:"DESK_STORE" envDefault:"file"`
	StorePath string `env:"DESK_STORE_PATH"`
	// StoreKey is a base64 encoded 32-byte key sealing the persisted credential.
	// Empty keeps the record in plain JSON.
	StoreKey string `env:"DESK_STORE_KEY"`
	// Origin scopes persisted state; defaults to the API host.
	Origin string `env:"DESK_ORIGIN"`

	Env      string `env:"DESK_ENV" envDefault:"development"`
	LogLevel string `env:"DESK_LOG_LEVEL" envDefault:"info"`
}

var dotenvOnce sync.Once

// Parse binds environment variables into v using struct tags.
func Parse[T any](v *T) error {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// Load parses, completes and validates Config.
func Load() (*Config, error) {
	var cfg Config
	if err := Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Complete(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Complete derives Origin and the default StorePath from the other fields.
func (c *Config) Complete() error {
	if c.Origin == "" {
		if u, err := url.Parse(c.APIURL); err == nil && u.Host != "" {
			c.Origin = u.Host
		}
	}
	if c.StorePath == "" && c.Store == StoreFile {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("%w: resolve config dir: %w", ErrInvalidConfig, err)
		}
		c.StorePath = filepath.Join(dir, "deskkit", "session.json")
	}
	return nil
}

// Validate checks the values Load cannot fix on its own.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: DESK_API_URL must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: DESK_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("%w: DESK_PAGE_SIZE must be between 1 and 100", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("%w: DESK_STORE must be one of memory, file, redis", ErrInvalidConfig)
	}
	if c.StoreKey != "" {
		if _, err := c.SealingKey(); err != nil {
			return err
		}
	}
	return nil
}

// SealingKey decodes StoreKey. It returns nil, nil when no key is configured.
func (c *Config) SealingKey() ([]byte, error) {
	if c.StoreKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.StoreKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: DESK_STORE_KEY must be base64 of 32 bytes", ErrInvalidConfig)
	}
	return key, nil
}
