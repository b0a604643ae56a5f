// Package kv is the device key-value persistence used by the client stores.
// Values are opaque JSON blobs keyed by string.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/subtrack/internal/errs"
)

// Store is a key-value blob store. Get returns errs.ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver string      `mapstructure:"driver" validate:"oneof=memory sqlite redis"`
	Path   string      `mapstructure:"path"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds connection parameters for the Redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(ctx, cfg.Path)
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown kv driver %q", cfg.Driver)
	}
}

// GetJSON loads key into v. found is false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	b, err := s.Get(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b)
}
