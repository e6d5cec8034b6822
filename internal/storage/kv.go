// Package storage persists the mind map and the key bindings in a small
// key/value backend. The file backend is the default; sqlite and redis are
// there for people who keep their maps next to other tooling, and the
// memory backend serves tests and --ephemeral sessions.
package storage

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DataKey holds the document as JSON {cards, connections}.
	DataKey = "mindmap-data"
	// KeyBindingsKey holds the bindings as versioned TOML.
	KeyBindingsKey = "mindmap-keybindings"
)

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrInvalidKey    = errors.New("invalid storage key")
)

// KV is a byte-oriented key/value store.
type KV interface {
	// Get returns the value and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Driver names a backend.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
	DriverMemory Driver = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver Driver
	// Path is the directory for the file backend and the database file for
	// sqlite.
	Path     string
	RedisURL string
	// Prefix namespaces redis keys.
	Prefix string
}

// Open returns the backend described by opts.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileKV(opts.Path)
	case DriverSQLite:
		return OpenSQLite(opts.Path)
	case DriverRedis:
		return NewRedisKV(ctx, opts.RedisURL, opts.Prefix)
	case DriverMemory:
		return NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
}

func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	return nil
}
