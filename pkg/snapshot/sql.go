package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLDialect identifies the SQL flavor for placeholder and upsert syntax.
type SQLDialect int

const (
	// DialectPostgreSQL uses $1, $2 placeholders and ON CONFLICT upserts.
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses ? placeholders and ON DUPLICATE KEY UPDATE.
	DialectMySQL
	// DialectSQLite uses ? placeholders and ON CONFLICT upserts.
	DialectSQLite
)

func (d SQLDialect) placeholder(n int) string {
	if d == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLStore persists snapshots in a SQL database via database/sql. The caller
// owns the *sql.DB; Close does not close it.
//
// Expected schema (PostgreSQL shown, adjust types per dialect):
//
//	CREATE TABLE reflow_snapshots (
//	    instance_id TEXT PRIMARY KEY,
//	    data        BYTEA NOT NULL,
//	    expires_at  TIMESTAMPTZ NOT NULL
//	);
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect SQLDialect
	done    chan struct{}
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	table           string
	dialect         SQLDialect
	cleanupInterval time.Duration
}

// WithSQLTableName sets the table name. Default: "reflow_snapshots".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.table = name
	}
}

// WithSQLDialect sets the SQL dialect. Default: DialectPostgreSQL.
func WithSQLDialect(d SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = d
	}
}

// WithSQLCleanupInterval sets how often expired rows are purged.
// Zero disables the background purge. Default: 5 minutes.
func WithSQLCleanupInterval(d time.Duration) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.cleanupInterval = d
	}
}

// NewSQLStore creates a snapshot store backed by db.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		table:           "reflow_snapshots",
		dialect:         DialectPostgreSQL,
		cleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := &SQLStore{
		db:      db,
		table:   cfg.table,
		dialect: cfg.dialect,
		done:    make(chan struct{}),
	}

	if cfg.cleanupInterval > 0 {
		go store.cleanupLoop(cfg.cleanupInterval)
	}
	return store
}

// Save upserts a snapshot row.
func (s *SQLStore) Save(ctx context.Context, instanceID string, data []byte, expiresAt time.Time) error {
	var query string
	switch s.dialect {
	case DialectMySQL:
		query = fmt.Sprintf(
			`INSERT INTO %s (instance_id, data, expires_at) VALUES (?, ?, ?)
			 ON DUPLICATE KEY UPDATE data = VALUES(data), expires_at = VALUES(expires_at)`,
			s.table)
	default:
		query = fmt.Sprintf(
			`INSERT INTO %s (instance_id, data, expires_at) VALUES (%s, %s, %s)
			 ON CONFLICT (instance_id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
			s.table, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))
	}

	if _, err := s.db.ExecContext(ctx, query, instanceID, data, expiresAt); err != nil {
		return fmt.Errorf("snapshot: save %s: %w", instanceID, err)
	}
	return nil
}

// Load reads a snapshot row, treating expired rows as missing.
func (s *SQLStore) Load(ctx context.Context, instanceID string) ([]byte, error) {
	query := fmt.Sprintf(
		`SELECT data, expires_at FROM %s WHERE instance_id = %s`,
		s.table, s.dialect.placeholder(1))

	var data []byte
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, query, instanceID).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", instanceID, err)
	}
	if time.Now().After(expiresAt) {
		return nil, nil
	}
	return data, nil
}

// Delete removes a snapshot row.
func (s *SQLStore) Delete(ctx context.Context, instanceID string) error {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE instance_id = %s`,
		s.table, s.dialect.placeholder(1))

	if _, err := s.db.ExecContext(ctx, query, instanceID); err != nil {
		return fmt.Errorf("snapshot: delete %s: %w", instanceID, err)
	}
	return nil
}

// Close stops the purge loop. The underlying *sql.DB stays open.
func (s *SQLStore) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func (s *SQLStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			query := fmt.Sprintf(
				`DELETE FROM %s WHERE expires_at < %s`,
				s.table, s.dialect.placeholder(1))
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.db.ExecContext(ctx, query, time.Now())
			cancel()
		}
	}
}
