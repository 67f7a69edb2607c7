// Package storage holds the key-value record the restaurant list is persisted under.
package storage

import (
	"context"
	"fmt"

	"food-picker/config"
)

// KV is a string key-value store. A missing key is reported as ok == false with a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Backend is a KV that owns resources to release on shutdown.
type Backend interface {
	KV
	Close() error
}

// Open returns the backend selected by cfg.Backend.
// The postgres backend expects db.Pool to be initialized by the caller.
func Open(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemory(), nil
	case config.StorageSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.StoragePostgres:
		return NewPostgres()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
