// file: internal/quota/store.go
// version: 1.0.0
// guid: 9d4e1b7a-6c25-4f38-b0e9-5a3c8d2f6e17

package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/cache"
)

// ErrStoreUnavailable wraps every failure reported by a CounterStore.
var ErrStoreUnavailable = errors.New("quota store unavailable")

// CounterStore is the durable counter the Manager reads and writes. An
// absent key means a zero count.
type CounterStore interface {
	Get(ctx context.Context, key string) (value int64, found bool, err error)
	Put(ctx context.Context, key string, value int64, ttl time.Duration) error
	Close() error
}

// StoreConfig selects and locates a CounterStore backend.
type StoreConfig struct {
	// Type is one of memory, pebble, sqlite or postgres.
	Type string `mapstructure:"type" yaml:"type"`
	Path string `mapstructure:"path" yaml:"path"`
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// OpenStore builds the backend named by cfg.Type.
func OpenStore(cfg StoreConfig) (CounterStore, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "pebble":
		if cfg.Path == "" {
			return nil, fmt.Errorf("pebble quota store requires a path")
		}
		return NewPebbleStore(cfg.Path)
	case "sqlite", "sqlite3":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite quota store requires a path")
		}
		return OpenSQLStore(DialectSQLite, cfg.Path)
	case "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres quota store requires a dsn")
		}
		return OpenSQLStore(DialectPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown quota store type %q", cfg.Type)
	}
}

// MemoryStore keeps counters in process memory. Counters do not survive a
// restart, so it suits tests and single-shot CLI runs.
type MemoryStore struct {
	items *cache.Cache[int64]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cache.New[int64](24 * time.Hour)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (int64, bool, error) {
	v, ok := m.items.Get(key)
	return v, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value int64, ttl time.Duration) error {
	m.items.SetWithTTL(key, value, ttl)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
