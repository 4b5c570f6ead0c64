// Package docstore owns the canonical in-memory document and serializes all
// persistence against a single snapshot target. Mutations run synchronously
// under the store lock; every accepted mutation enqueues exactly one write,
// executed by a single worker in strict submission order.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wellscope/pkg/domain"
)

// ErrClosed is returned by operations issued after Close.
var ErrClosed = errors.New("document store is closed")

// Snapshotter loads and writes whole-document snapshots against one durable
// target. Implementations: file (atomic rename), sqlite, postgres.
type Snapshotter interface {
	// Load reads the stored document. found is false when no snapshot
	// exists yet; a snapshot that exists but does not decode must be
	// reported as domain.CorruptStateError.
	Load(ctx context.Context) (doc domain.Document, found bool, err error)
	// Write replaces the stored document with doc.
	Write(ctx context.Context, doc domain.Document) error
	// Driver names the backing implementation for logs and metrics.
	Driver() string
	Close() error
}

// Mirror receives a best-effort copy of each successfully written snapshot.
// Mirror failures are logged and never surfaced to writers.
type Mirror interface {
	MirrorSnapshot(ctx context.Context, payload []byte) error
}

// Observer records persistence outcomes. Satisfied by the metrics recorders
// in internal/core.
type Observer interface {
	ObservePersist(driver string, success bool, duration time.Duration)
}

// Config carries store construction parameters.
type Config struct {
	// DataDir is the writable storage root. When set, Open creates it along
	// with the uploads/ and reports/ subdirectories.
	DataDir string
	// Snapshotter is the durable snapshot target. Required.
	Snapshotter Snapshotter
	// Seed constructs the initial document when no snapshot exists.
	Seed func(now time.Time) domain.Document
	// Mirror, Logger, and Observer are optional.
	Mirror   Mirror
	Logger   logrus.FieldLogger
	Observer Observer
	// QueueDepth bounds the pending write queue. Defaults to 64.
	QueueDepth int
}

type writeRequest struct {
	doc  domain.Document
	done chan error
}

// Store is the single owner of the in-memory document.
type Store struct {
	mu     sync.RWMutex
	doc    domain.Document
	closed bool

	snap   Snapshotter
	mirror Mirror
	log    logrus.FieldLogger
	obs    Observer
	nowFn  func() time.Time

	queue chan writeRequest
	wg    sync.WaitGroup
}

var _ domain.DocumentStore = (*Store)(nil)

// Open loads the stored document, or seeds and persists a fresh one when no
// snapshot exists, and starts the write worker. Directory creation or load
// failures abort startup; a snapshot that fails to decode surfaces as
// domain.CorruptStateError.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Snapshotter == nil {
		return nil, errors.New("docstore: snapshotter required")
	}
	if cfg.DataDir != "" {
		for _, dir := range []string{cfg.DataDir, filepath.Join(cfg.DataDir, "uploads"), filepath.Join(cfg.DataDir, "reports")} {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
			}
		}
	}
	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		logger = l
	}
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 64
	}
	s := &Store{
		snap:   cfg.Snapshotter,
		mirror: cfg.Mirror,
		log:    logger,
		obs:    cfg.Observer,
		nowFn:  func() time.Time { return time.Now().UTC() },
		queue:  make(chan writeRequest, depth),
	}
	doc, found, err := s.snap.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		if cfg.Seed != nil {
			doc = cfg.Seed(s.nowFn())
		}
		if err := s.snap.Write(ctx, doc); err != nil {
			return nil, fmt.Errorf("persist seed document: %w", err)
		}
	}
	s.doc = doc
	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

// Mutate applies fn to the owned document under the store lock. On fn
// success exactly one persistence request is enqueued, unconditionally and
// without coalescing, and Mutate returns once that write completed or
// failed. A failed write leaves the in-memory document authoritative; memory
// and disk diverge until the next successful write. On fn error nothing is
// enqueued and any in-place edits fn already made remain in memory.
func (s *Store) Mutate(ctx context.Context, fn func(*domain.Document) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := fn(&s.doc); err != nil {
		s.mu.Unlock()
		return err
	}
	req := s.enqueueLocked()
	s.mu.Unlock()
	return <-req.done
}

// Persist enqueues a write of the current document and waits for it. Used by
// the boot path after a migration pass changed content.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	req := s.enqueueLocked()
	s.mu.Unlock()
	return <-req.done
}

// enqueueLocked captures a deep clone of the current document and appends it
// to the write queue. Called with mu held so queue order matches mutation
// order; the send blocks when the queue is full, which is the store's only
// back-pressure mechanism.
func (s *Store) enqueueLocked() writeRequest {
	req := writeRequest{doc: s.doc.Clone(), done: make(chan error, 1)}
	s.queue <- req
	return req
}

// View runs fn against a deep-cloned snapshot of the document.
func (s *Store) View(ctx context.Context, fn func(domain.Document) error) error {
	s.mu.RLock()
	snapshot := s.doc.Clone()
	s.mu.RUnlock()
	return fn(snapshot)
}

// Snapshot returns a deep-cloned copy of the current document.
func (s *Store) Snapshot() domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Close rejects further mutations, drains pending writes, and stops the
// worker. The context bounds only the wait for the drain.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.snap.Close()
}

// writeLoop executes queued writes one at a time, in submission order. A
// failed write surfaces only to its requester and never skips successors.
func (s *Store) writeLoop() {
	defer s.wg.Done()
	ctx := context.Background()
	for req := range s.queue {
		start := s.nowFn()
		err := s.snap.Write(ctx, req.doc)
		if s.obs != nil {
			s.obs.ObservePersist(s.snap.Driver(), err == nil, s.nowFn().Sub(start))
		}
		if err == nil && s.mirror != nil {
			s.mirrorSnapshot(ctx, req.doc)
		}
		req.done <- err
	}
}

func (s *Store) mirrorSnapshot(ctx context.Context, doc domain.Document) {
	payload, err := json.Marshal(doc)
	if err != nil {
		s.log.WithError(err).Warn("encode snapshot for mirror")
		return
	}
	if err := s.mirror.MirrorSnapshot(ctx, payload); err != nil {
		s.log.WithError(err).Warn("mirror snapshot")
	}
}
