// file: internal/quota/pebble_store.go
// version: 1.0.0
// guid: b81e5c3d-0a47-4f92-8d6b-e4c7a2f90d35

package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleStore persists quota counters in PebbleDB.
//
// Key Schema:
// - quota:<provider key>:<YYYY-MM-DD> -> "<count>|<expires unix seconds>"
//
// Pebble has no native TTL; expiry is checked on read and stale keys are
// deleted lazily.
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time
}

// NewPebbleStore opens or creates a PebbleDB at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	return newPebbleStore(path, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
}

func newPebbleStore(path string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open quota PebbleDB: %w", err)
	}
	return &PebbleStore{db: db, now: time.Now}, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

func (p *PebbleStore) Get(_ context.Context, key string) (int64, bool, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, key, err)
	}
	raw := string(value)
	closer.Close()

	count, expiresAt, err := decodeCounter(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: decode %s: %v", ErrStoreUnavailable, key, err)
	}
	if !p.now().Before(expiresAt) {
		_ = p.db.Delete([]byte(key), pebble.NoSync)
		return 0, false, nil
	}
	return count, true, nil
}

func (p *PebbleStore) Put(_ context.Context, key string, value int64, ttl time.Duration) error {
	expiresAt := p.now().Add(ttl)
	if err := p.db.Set([]byte(key), []byte(encodeCounter(value, expiresAt)), pebble.Sync); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

func encodeCounter(count int64, expiresAt time.Time) string {
	return strconv.FormatInt(count, 10) + "|" + strconv.FormatInt(expiresAt.Unix(), 10)
}

func decodeCounter(raw string) (int64, time.Time, error) {
	countStr, expStr, ok := strings.Cut(raw, "|")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("malformed counter value %q", raw)
	}
	count, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, err
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, time.Unix(exp, 0), nil
}
