package authlimit

import (
	"errors"
	"testing"
	"time"

	"wellscope/pkg/domain"
)

func newTestLimiter() (*Limiter, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New()
	l.nowFn = func() time.Time { return now }
	return l, &now
}

func TestLimiterAllowsUpToThreshold(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < Threshold; i++ {
		if err := l.Check("10.0.0.1", "admin"); err != nil {
			t.Fatalf("attempt %d blocked: %v", i+1, err)
		}
		l.RecordFailure("10.0.0.1", "admin")
	}
	err := l.Check("10.0.0.1", "admin")
	var limited domain.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError after %d failures, got %v", Threshold, err)
	}
	if limited.RetryAfter <= 0 || limited.RetryAfter > Window {
		t.Fatalf("retry-after out of range: %v", limited.RetryAfter)
	}
}

func TestLimiterBlockedAttemptIsNotCounted(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < Threshold; i++ {
		l.RecordFailure("10.0.0.1", "admin")
	}
	// Repeated blocked checks must not extend or deepen the block.
	for i := 0; i < 10; i++ {
		if err := l.Check("10.0.0.1", "admin"); err == nil {
			t.Fatalf("check %d allowed while blocked", i)
		}
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	l, now := newTestLimiter()
	for i := 0; i < Threshold; i++ {
		l.RecordFailure("10.0.0.1", "admin")
	}
	if err := l.Check("10.0.0.1", "admin"); err == nil {
		t.Fatal("expected block inside window")
	}

	*now = now.Add(Window)
	if err := l.Check("10.0.0.1", "admin"); err != nil {
		t.Fatalf("expected reset after window elapsed: %v", err)
	}
	// The elapsed window was cleared; a new failure starts over at one.
	l.RecordFailure("10.0.0.1", "admin")
	if err := l.Check("10.0.0.1", "admin"); err != nil {
		t.Fatalf("single failure in fresh window blocked: %v", err)
	}
}

func TestLimiterFailureAfterExpiryOpensFreshWindow(t *testing.T) {
	l, now := newTestLimiter()
	for i := 0; i < Threshold-1; i++ {
		l.RecordFailure("10.0.0.1", "admin")
	}
	*now = now.Add(Window + time.Second)
	l.RecordFailure("10.0.0.1", "admin")
	for i := 0; i < Threshold-1; i++ {
		if err := l.Check("10.0.0.1", "admin"); err != nil {
			t.Fatalf("fresh window blocked early: %v", err)
		}
		l.RecordFailure("10.0.0.1", "admin")
	}
	if err := l.Check("10.0.0.1", "admin"); err == nil {
		t.Fatal("expected block after threshold in fresh window")
	}
}

func TestLimiterSuccessClearsCounter(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < Threshold-1; i++ {
		l.RecordFailure("10.0.0.1", "admin")
	}
	l.RecordSuccess("10.0.0.1", "admin")
	for i := 0; i < Threshold; i++ {
		if err := l.Check("10.0.0.1", "admin"); err != nil {
			t.Fatalf("attempt %d blocked after success reset: %v", i+1, err)
		}
		l.RecordFailure("10.0.0.1", "admin")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < Threshold; i++ {
		l.RecordFailure("10.0.0.1", "admin")
	}
	if err := l.Check("10.0.0.2", "admin"); err != nil {
		t.Fatalf("different address blocked: %v", err)
	}
	if err := l.Check("10.0.0.1", "operator"); err != nil {
		t.Fatalf("different account blocked: %v", err)
	}
}

func TestLimiterAccountIsCaseInsensitive(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < Threshold; i++ {
		l.RecordFailure("10.0.0.1", "Admin")
	}
	if err := l.Check("10.0.0.1", "admin"); err == nil {
		t.Fatal("case variant bypassed the limiter")
	}
}
