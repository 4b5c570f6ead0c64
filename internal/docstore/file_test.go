package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wellscope/pkg/domain"
)

func testDocument() domain.Document {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return domain.Document{
		Meta: domain.Meta{Version: 3, UpdatedAt: now},
		Wells: []domain.Well{
			{Base: domain.Base{ID: "well_1", CreatedAt: now, UpdatedAt: now}, Name: "چاه شماره یک", Status: domain.WellStatusActive},
		},
		Reports: []domain.Report{
			{Base: domain.Base{ID: "report_1"}, Title: "گزارش ماهانه", FileName: "monthly.pdf", GeneratedAt: now},
		},
	}
}

func TestFileSnapshotterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	snap, err := NewFileSnapshotter(path)
	if err != nil {
		t.Fatalf("NewFileSnapshotter: %v", err)
	}
	ctx := context.Background()

	if _, found, err := snap.Load(ctx); err != nil || found {
		t.Fatalf("expected empty load, found=%v err=%v", found, err)
	}

	want := testDocument()
	if err := snap.Write(ctx, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, found, err := snap.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot found after write")
	}
	if got.Meta.Version != want.Meta.Version || len(got.Wells) != 1 || got.Wells[0].Name != want.Wells[0].Name {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestFileSnapshotterWriteLeavesNoTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	snap, err := NewFileSnapshotter(path)
	if err != nil {
		t.Fatalf("NewFileSnapshotter: %v", err)
	}
	if err := snap.Write(context.Background(), testDocument()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(snap.Path() + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind: %v", err)
	}
	if _, err := os.Stat(snap.Path()); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
}

func TestFileSnapshotterCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"meta": {"version": `), 0o640); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	snap, err := NewFileSnapshotter(path)
	if err != nil {
		t.Fatalf("NewFileSnapshotter: %v", err)
	}
	_, _, err = snap.Load(context.Background())
	var corrupt domain.CorruptStateError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptStateError, got %v", err)
	}
	if corrupt.Path != snap.Path() {
		t.Fatalf("corrupt error path = %q, want %q", corrupt.Path, snap.Path())
	}
}

func TestFileSnapshotterRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"meta":{"version":3},"bogus":true}`), 0o640); err != nil {
		t.Fatalf("write state file: %v", err)
	}
	snap, err := NewFileSnapshotter(path)
	if err != nil {
		t.Fatalf("NewFileSnapshotter: %v", err)
	}
	_, _, err = snap.Load(context.Background())
	var corrupt domain.CorruptStateError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptStateError for unknown field, got %v", err)
	}
}

func TestNewFileSnapshotterRequiresPath(t *testing.T) {
	if _, err := NewFileSnapshotter(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDocumentStoreOnFileSnapshotter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	snap, err := NewFileSnapshotter(path)
	if err != nil {
		t.Fatalf("NewFileSnapshotter: %v", err)
	}
	ctx := context.Background()
	store, err := Open(ctx, Config{
		Snapshotter: snap,
		Seed:        func(now time.Time) domain.Document { return testDocument() },
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Mutate(ctx, func(doc *domain.Document) error {
		doc.Wells = append(doc.Wells, domain.Well{Base: domain.Base{ID: "well_2"}, Name: "چاه شماره دو"})
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen and confirm the mutation survived the restart.
	snap2, err := NewFileSnapshotter(path)
	if err != nil {
		t.Fatalf("NewFileSnapshotter: %v", err)
	}
	store2, err := Open(ctx, Config{Snapshotter: snap2})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = store2.Close(ctx) }()
	if got := len(store2.Snapshot().Wells); got != 2 {
		t.Fatalf("expected 2 wells after reload, got %d", got)
	}
}
