package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"wellscope/pkg/domain"
)

const (
	postgresDriver = "pgx"
	// Default DSN keeps parity with the env defaults in internal/core.
	defaultPostgresDSN = "postgres://localhost/wellscope?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// PostgresSnapshotter persists the document into a single state table on a
// PostgreSQL server, one JSONB payload per collection bucket.
type PostgresSnapshotter struct {
	db  *sql.DB
	dsn string
}

// NewPostgresSnapshotter connects to the server, pings it, and ensures the
// state table exists. An unreachable server is fatal; the store never boots
// against unknown state.
func NewPostgresSnapshotter(ctx context.Context, dsn string) (*PostgresSnapshotter, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	openMu.Lock()
	db, err := sqlOpen(postgresDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &PostgresSnapshotter{db: db, dsn: dsn}, nil
}

func (s *PostgresSnapshotter) Driver() string { return "postgres" }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *PostgresSnapshotter) DB() *sql.DB { return s.db }

func (s *PostgresSnapshotter) Load(ctx context.Context) (domain.Document, bool, error) {
	return loadBuckets(ctx, s.db, s.dsn)
}

func (s *PostgresSnapshotter) Write(ctx context.Context, doc domain.Document) error {
	return writeBuckets(ctx, s.db, doc, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`)
}

func (s *PostgresSnapshotter) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
