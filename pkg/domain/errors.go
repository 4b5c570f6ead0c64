package domain

import (
	"fmt"
	"time"
)

// CorruptStateError reports a backing file that exists but does not
// deserialize into the expected Document shape. It is fatal at startup;
// the store refuses to guess or auto-repair.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e CorruptStateError) Error() string {
	return fmt.Sprintf("state file %s is corrupt: %v", e.Path, e.Err)
}

func (e CorruptStateError) Unwrap() error { return e.Err }

// RateLimitedError reports that the login attempt limiter threshold was
// exceeded for a key. It is a retryable-later condition, distinct from
// invalid credentials.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter)
}

// NotFoundError is returned when a referenced record is absent.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError is returned when a record id already exists in its collection.
type ConflictError struct {
	Entity EntityType
	ID     string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}
