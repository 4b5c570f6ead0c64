package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"wellscope/pkg/domain"
)

// FileSnapshotter persists the document as indented JSON in a single file.
// Writes go to a sibling <path>.tmp first and are renamed onto the canonical
// path, so an external observer only ever sees a complete document. The .tmp
// sibling is a non-canonical artifact and may be left behind after a crash.
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter returns a snapshotter backed by the given file path.
func NewFileSnapshotter(path string) (*FileSnapshotter, error) {
	if path == "" {
		return nil, errors.New("state file path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve state path: %w", err)
	}
	return &FileSnapshotter{path: abs}, nil
}

// Path returns the canonical state file path.
func (f *FileSnapshotter) Path() string { return f.path }

func (f *FileSnapshotter) Driver() string { return "file" }

// Load reads and strictly decodes the state file. Unknown fields or a
// non-document shape surface as domain.CorruptStateError.
func (f *FileSnapshotter) Load(ctx context.Context) (domain.Document, bool, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("read state file: %w", err)
	}
	var doc domain.Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return domain.Document{}, false, domain.CorruptStateError{Path: f.path, Err: err}
	}
	return doc, true, nil
}

// Write serializes doc and replaces the state file atomically.
func (f *FileSnapshotter) Write(ctx context.Context, doc domain.Document) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return writeAtomic(f.path, payload)
}

func (f *FileSnapshotter) Close() error { return nil }

// writeAtomic writes payload to a temporary sibling of path and renames it
// into place. The temp file lives in the same directory so the rename stays
// on one filesystem and is atomic.
func writeAtomic(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("open temp state file: %w", err)
	}
	if _, err := file.Write(payload); err != nil {
		_ = file.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
