package domain

import "context"

// DocumentStore is the contract request handlers consume. Mutate is the only
// sanctioned way to change state; View computes over a point-in-time
// snapshot. No query language is offered; filtering and sorting are the
// caller's responsibility over the full snapshot.
type DocumentStore interface {
	// Mutate applies fn to the owned document under the store lock, then
	// enqueues exactly one persistence request and returns once that write
	// has completed or failed. fn must not perform long-running I/O.
	Mutate(ctx context.Context, fn func(*Document) error) error
	// View runs fn against a deep-cloned snapshot of the document.
	View(ctx context.Context, fn func(Document) error) error
	// Snapshot returns a deep-cloned copy of the current document.
	Snapshot() Document
	// Persist enqueues a write of the current document and waits for it.
	Persist(ctx context.Context) error
	// Close stops the write queue after draining pending requests.
	Close(ctx context.Context) error
}
