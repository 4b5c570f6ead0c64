package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"wellscope/internal/blob"
	"wellscope/internal/docstore"
	"wellscope/internal/migrate"
	"wellscope/internal/seedassets"
	"wellscope/pkg/domain"
)

// StorageDriver identifies a concrete snapshot backend.
type StorageDriver string

const (
	StorageFile     StorageDriver = "file"     // single JSON state file (default)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// BootOptions carries the cross-cutting collaborators constructed in main.
type BootOptions struct {
	Logger   logrus.FieldLogger
	Observer docstore.Observer
	// Mirror overrides the env-selected snapshot mirror; mostly for tests.
	Mirror docstore.Mirror
}

// Boot opens the document store selected by environment variables, runs the
// migration pass, and synchronizes seed assets. The store is ready to serve
// mutate/read calls when Boot returns.
//
//	WELLSCOPE_STORAGE_DRIVER: file|sqlite|postgres (default file)
//	WELLSCOPE_DATA_DIR: writable storage root (default ./data)
//	WELLSCOPE_STATE_PATH: state file when driver=file (default <data>/state.json)
//	WELLSCOPE_SQLITE_PATH: sqlite file when driver=sqlite (default <data>/wellscope.db)
//	WELLSCOPE_POSTGRES_DSN: postgres DSN when driver=postgres
//	WELLSCOPE_SEED_DIR: read-only seed asset directory (default ./seed-assets)
//	WELLSCOPE_BLOB_MIRROR: true enables best-effort snapshot mirroring via internal/blob
func Boot(ctx context.Context, opts BootOptions) (*docstore.Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	dataDir, err := filepath.Abs(envDefault("WELLSCOPE_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	snap, err := openSnapshotter(ctx, dataDir)
	if err != nil {
		return nil, err
	}

	mirror := opts.Mirror
	if mirror == nil && strings.EqualFold(os.Getenv("WELLSCOPE_BLOB_MIRROR"), "true") {
		blobStore, err := blob.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		mirror = NewBlobMirror(blobStore)
	}

	store, err := docstore.Open(ctx, docstore.Config{
		DataDir:     dataDir,
		Snapshotter: snap,
		Seed:        SeedDocument,
		Mirror:      mirror,
		Logger:      logger,
		Observer:    opts.Observer,
	})
	if err != nil {
		return nil, err
	}

	migrated := false
	if store.Snapshot().Meta.Version < migrate.CurrentVersion {
		if err := store.Mutate(ctx, func(doc *domain.Document) error {
			migrate.Run(doc)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		migrated = true
		logger.WithField("version", migrate.CurrentVersion).Info("state migrated")
	}

	syncer := seedassets.New(envDefault("WELLSCOPE_SEED_DIR", "./seed-assets"), filepath.Join(dataDir, "reports"), logger)
	if copied := syncer.Sync(store.Snapshot(), migrated); copied > 0 {
		logger.WithField("copied", copied).Info("seed assets refreshed")
	}

	return store, nil
}

func openSnapshotter(ctx context.Context, dataDir string) (docstore.Snapshotter, error) {
	driver := envDefault("WELLSCOPE_STORAGE_DRIVER", string(StorageFile))
	switch StorageDriver(driver) {
	case StorageFile:
		return docstore.NewFileSnapshotter(envDefault("WELLSCOPE_STATE_PATH", filepath.Join(dataDir, "state.json")))
	case StorageSQLite:
		return docstore.NewSQLiteSnapshotter(envDefault("WELLSCOPE_SQLITE_PATH", filepath.Join(dataDir, "wellscope.db")))
	case StoragePostgres:
		return docstore.NewPostgresSnapshotter(ctx, os.Getenv("WELLSCOPE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
