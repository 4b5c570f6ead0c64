package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"wellscope/internal/migrate"
	"wellscope/pkg/domain"
)

func bootEnv(t *testing.T) string {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("WELLSCOPE_DATA_DIR", dataDir)
	t.Setenv("WELLSCOPE_STORAGE_DRIVER", "file")
	t.Setenv("WELLSCOPE_STATE_PATH", filepath.Join(dataDir, "state.json"))
	t.Setenv("WELLSCOPE_SEED_DIR", filepath.Join(t.TempDir(), "seed-assets"))
	t.Setenv("WELLSCOPE_BLOB_MIRROR", "")
	return dataDir
}

func testBootLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestBootSeedsFreshDeployment(t *testing.T) {
	dataDir := bootEnv(t)
	ctx := context.Background()

	store, err := Boot(ctx, BootOptions{Logger: testBootLogger()})
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	doc := store.Snapshot()
	if doc.Meta.Version != migrate.CurrentVersion {
		t.Fatalf("seed version = %d, want %d", doc.Meta.Version, migrate.CurrentVersion)
	}
	if len(doc.Wells) != 3 || len(doc.Organizations) != 2 || len(doc.Users) != 1 {
		t.Fatalf("unexpected seed document: wells=%d orgs=%d users=%d", len(doc.Wells), len(doc.Organizations), len(doc.Users))
	}

	for _, dir := range []string{dataDir, filepath.Join(dataDir, "uploads"), filepath.Join(dataDir, "reports")} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("storage dir missing: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dataDir, "state.json")); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
}

func TestBootReloadsExistingState(t *testing.T) {
	bootEnv(t)
	ctx := context.Background()

	store, err := Boot(ctx, BootOptions{Logger: testBootLogger()})
	if err != nil {
		t.Fatalf("first Boot: %v", err)
	}
	if err := store.Mutate(ctx, func(doc *domain.Document) error {
		doc.Wells = append(doc.Wells, domain.Well{Base: domain.Base{ID: "well_extra"}, Name: "چاه اضافه"})
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store2, err := Boot(ctx, BootOptions{Logger: testBootLogger()})
	if err != nil {
		t.Fatalf("second Boot: %v", err)
	}
	defer func() { _ = store2.Close(ctx) }()
	if got := len(store2.Snapshot().Wells); got != 4 {
		t.Fatalf("expected 4 wells after reload, got %d", got)
	}
}

func TestBootMigratesLegacyState(t *testing.T) {
	dataDir := bootEnv(t)
	ctx := context.Background()

	// Hand-write a version 1 state file with placeholder content.
	legacy := domain.Document{
		Meta: domain.Meta{Version: 1, UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Organizations: []domain.Organization{
			{Base: domain.Base{ID: "org_1"}, Name: "Sample Org"},
		},
		Wells: []domain.Well{
			{Base: domain.Base{ID: "well_1"}, Name: "Well 1", Status: domain.WellStatusActive},
		},
	}
	payload, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal legacy state: %v", err)
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "state.json"), payload, 0o640); err != nil {
		t.Fatalf("write legacy state: %v", err)
	}

	store, err := Boot(ctx, BootOptions{Logger: testBootLogger()})
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	doc := store.Snapshot()
	if doc.Meta.Version != migrate.CurrentVersion {
		t.Fatalf("version = %d, want %d", doc.Meta.Version, migrate.CurrentVersion)
	}
	if doc.Organizations[0].Name != "شرکت آب منطقه‌ای فارس" {
		t.Fatalf("org_1 not patched: %q", doc.Organizations[0].Name)
	}
	if doc.Wells[0].Name != "چاه شماره یک دشت ارژن" {
		t.Fatalf("well_1 not patched: %q", doc.Wells[0].Name)
	}
	// Seeding must not run when a snapshot exists.
	if len(doc.Users) != 0 {
		t.Fatalf("seed ran over existing state: %+v", doc.Users)
	}

	// The migrated document was persisted.
	raw, err := os.ReadFile(filepath.Join(dataDir, "state.json"))
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var persisted domain.Document
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if persisted.Meta.Version != migrate.CurrentVersion {
		t.Fatalf("persisted version = %d", persisted.Meta.Version)
	}
}

func TestBootCorruptStateIsFatal(t *testing.T) {
	dataDir := bootEnv(t)
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "state.json"), []byte("{not json"), 0o640); err != nil {
		t.Fatalf("write corrupt state: %v", err)
	}

	_, err := Boot(context.Background(), BootOptions{Logger: testBootLogger()})
	var corrupt domain.CorruptStateError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptStateError, got %v", err)
	}
}

func TestBootSyncsSeedAssets(t *testing.T) {
	dataDir := bootEnv(t)
	seedDir := filepath.Join(t.TempDir(), "assets")
	t.Setenv("WELLSCOPE_SEED_DIR", seedDir)
	if err := os.MkdirAll(seedDir, 0o750); err != nil {
		t.Fatalf("mkdir seed dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(seedDir, "monthly-operations.pdf"), []byte("pdf bytes"), 0o640); err != nil {
		t.Fatalf("write seed asset: %v", err)
	}

	ctx := context.Background()
	store, err := Boot(ctx, BootOptions{Logger: testBootLogger()})
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	copied, err := os.ReadFile(filepath.Join(dataDir, "reports", "monthly-operations.pdf"))
	if err != nil {
		t.Fatalf("seed asset not copied: %v", err)
	}
	if string(copied) != "pdf bytes" {
		t.Fatalf("copied content = %q", copied)
	}
}

func TestBootUnknownDriverFails(t *testing.T) {
	bootEnv(t)
	t.Setenv("WELLSCOPE_STORAGE_DRIVER", "oracle")
	if _, err := Boot(context.Background(), BootOptions{Logger: testBootLogger()}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestBootSQLiteDriver(t *testing.T) {
	bootEnv(t)
	t.Setenv("WELLSCOPE_STORAGE_DRIVER", "sqlite")
	ctx := context.Background()

	store, err := Boot(ctx, BootOptions{Logger: testBootLogger()})
	if err != nil {
		t.Fatalf("Boot sqlite: %v", err)
	}
	doc := store.Snapshot()
	if doc.Meta.Version != migrate.CurrentVersion || len(doc.Wells) != 3 {
		t.Fatalf("unexpected sqlite seed: version=%d wells=%d", doc.Meta.Version, len(doc.Wells))
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store2, err := Boot(ctx, BootOptions{Logger: testBootLogger()})
	if err != nil {
		t.Fatalf("sqlite reboot: %v", err)
	}
	defer func() { _ = store2.Close(ctx) }()
	if len(store2.Snapshot().Wells) != 3 {
		t.Fatal("sqlite state did not survive restart")
	}
}
