// file: internal/quota/sql_store.go
// version: 1.0.0
// guid: 4a6c0e8f-d239-4b71-a5e2-9f1b3d7c8e06

package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the database/sql driver behind a SQLStore.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

const createCountersTable = `CREATE TABLE IF NOT EXISTS quota_counters (
	counter_key TEXT PRIMARY KEY,
	value BIGINT NOT NULL,
	expires_at BIGINT NOT NULL
)`

// SQLStore persists counters in a single table on SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time

	getQuery string
	putQuery string
}

// OpenSQLStore opens a connection with the dialect's driver and prepares
// the counters table.
func OpenSQLStore(dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s quota store: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	store, err := NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an existing handle and creates the table if needed.
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if _, err := db.Exec(createCountersTable); err != nil {
		return nil, fmt.Errorf("failed to create quota_counters table: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialect, now: time.Now}
	s.getQuery = fmt.Sprintf("SELECT value, expires_at FROM quota_counters WHERE counter_key = %s",
		s.placeholder(1))
	s.putQuery = fmt.Sprintf(`INSERT INTO quota_counters (counter_key, value, expires_at) VALUES (%s, %s, %s)
ON CONFLICT (counter_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3))
	return s, nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Get(ctx context.Context, key string) (int64, bool, error) {
	var value, expiresAt int64
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: select %s: %v", ErrStoreUnavailable, key, err)
	}
	if s.now().Unix() >= expiresAt {
		return 0, false, nil
	}
	return value, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value int64, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).Unix()
	if _, err := s.db.ExecContext(ctx, s.putQuery, key, value, expiresAt); err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

// PurgeExpired deletes counters whose TTL has passed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM quota_counters WHERE expires_at <= %s", s.placeholder(1)),
		s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %v", ErrStoreUnavailable, err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
