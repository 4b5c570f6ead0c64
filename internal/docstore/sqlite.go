package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"wellscope/pkg/domain"
)

// SQLiteSnapshotter persists the document as JSON payloads in a single
// state table, one row per collection bucket.
type SQLiteSnapshotter struct {
	db   *sql.DB
	path string
}

// NewSQLiteSnapshotter opens (or creates) the sqlite database at path and
// ensures the state table exists.
func NewSQLiteSnapshotter(path string) (*SQLiteSnapshotter, error) {
	if path == "" {
		path = "wellscope.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLiteSnapshotter{db: db, path: path}, nil
}

func (s *SQLiteSnapshotter) Driver() string { return "sqlite" }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQLiteSnapshotter) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *SQLiteSnapshotter) Path() string { return s.path }

func (s *SQLiteSnapshotter) Load(ctx context.Context) (domain.Document, bool, error) {
	return loadBuckets(ctx, s.db, s.path)
}

func (s *SQLiteSnapshotter) Write(ctx context.Context, doc domain.Document) error {
	return writeBuckets(ctx, s.db, doc, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`)
}

func (s *SQLiteSnapshotter) Close() error { return s.db.Close() }

// Bucket names shared by the sqlite and postgres snapshotters.
var stateBuckets = []string{
	"meta",
	"users",
	"sessions",
	"organizations",
	"datasets",
	"wells",
	"scenarios",
	"models",
	"reports",
	"audits",
}

func bucketTargets(doc *domain.Document) map[string]any {
	return map[string]any{
		"meta":          &doc.Meta,
		"users":         &doc.Users,
		"sessions":      &doc.Sessions,
		"organizations": &doc.Organizations,
		"datasets":      &doc.Datasets,
		"wells":         &doc.Wells,
		"scenarios":     &doc.Scenarios,
		"models":        &doc.Models,
		"reports":       &doc.Reports,
		"audits":        &doc.Audits,
	}
}

func bucketSources(doc domain.Document) map[string]any {
	return map[string]any{
		"meta":          doc.Meta,
		"users":         doc.Users,
		"sessions":      doc.Sessions,
		"organizations": doc.Organizations,
		"datasets":      doc.Datasets,
		"wells":         doc.Wells,
		"scenarios":     doc.Scenarios,
		"models":        doc.Models,
		"reports":       doc.Reports,
		"audits":        doc.Audits,
	}
}

func loadBuckets(ctx context.Context, db *sql.DB, origin string) (domain.Document, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var doc domain.Document
	targets := bucketTargets(&doc)
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Document{}, false, fmt.Errorf("scan state: %w", err)
		}
		found = true
		if len(payload) == 0 {
			continue
		}
		target, ok := targets[bucket]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return domain.Document{}, false, domain.CorruptStateError{Path: origin, Err: fmt.Errorf("decode %s: %w", bucket, err)}
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Document{}, false, fmt.Errorf("iterate state: %w", err)
	}
	return doc, found, nil
}

func writeBuckets(ctx context.Context, db *sql.DB, doc domain.Document, upsert string) (retErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	sources := bucketSources(doc)
	for _, bucket := range stateBuckets {
		payload, err := json.Marshal(sources[bucket])
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, upsert, bucket, payload); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
