// Package seedassets copies reference report files into the writable storage
// area at startup. Every failure mode here is best-effort: a missing
// reference, an unreadable destination, or a failed copy is logged and
// skipped, never surfaced to the boot sequence.
package seedassets

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"wellscope/pkg/domain"
)

// Syncer mirrors reference assets from a read-only seed directory into the
// deployment's reports directory.
type Syncer struct {
	seedDir string
	destDir string
	log     logrus.FieldLogger
}

// New constructs a syncer. seedDir is the read-only reference directory
// shipped alongside the application; destDir is the writable reports
// directory under the storage root.
func New(seedDir, destDir string, log logrus.FieldLogger) *Syncer {
	if log == nil {
		log = logrus.New()
	}
	return &Syncer{seedDir: seedDir, destDir: destDir, log: log}
}

// Sync walks the reports collection and ensures each named backing file is
// present in the destination directory. force skips the byte comparison and
// refreshes every destination that has a reference copy; the boot path sets
// it after a migration pass changed content. Returns the number of files
// copied.
func (s *Syncer) Sync(doc domain.Document, force bool) int {
	copied := 0
	for _, report := range doc.Reports {
		name := strings.TrimSpace(report.FileName)
		if name == "" {
			continue
		}
		if err := validateName(name); err != nil {
			s.log.WithField("report", report.ID).WithError(err).Warn("skip seed asset")
			continue
		}
		if s.syncOne(name, force) {
			copied++
		}
	}
	return copied
}

func (s *Syncer) syncOne(name string, force bool) bool {
	src := filepath.Join(s.seedDir, name)
	ref, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		// No reference copy shipped for this record; not an error.
		return false
	}
	if err != nil {
		s.log.WithField("asset", name).WithError(err).Warn("read seed asset")
		return false
	}
	dest := filepath.Join(s.destDir, name)
	if !force {
		existing, err := os.ReadFile(dest)
		if err == nil && bytes.Equal(existing, ref) {
			return false
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			// Comparison failed; leave the existing file alone.
			s.log.WithField("asset", name).WithError(err).Warn("compare seed asset")
			return false
		}
	}
	if err := os.WriteFile(dest, ref, 0o640); err != nil {
		s.log.WithField("asset", name).WithError(err).Warn("copy seed asset")
		return false
	}
	return true
}

// validateName rejects names that would escape the destination directory.
func validateName(name string) error {
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid asset name %q", name)
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("absolute asset name %q", name)
	}
	return nil
}
