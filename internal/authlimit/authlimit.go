// Package authlimit guards repeated authentication attempts with a keyed
// sliding-window counter. State is memory-only and resets on process
// restart; that trade-off is deliberate.
package authlimit

import (
	"strings"
	"sync"
	"time"

	"wellscope/pkg/domain"
)

// Fixed limiter configuration. Not runtime-adjustable.
const (
	// Threshold is the number of failed attempts tolerated inside one window.
	Threshold = 5
	// Window is the sliding window length.
	Window = 5 * time.Minute
)

type counter struct {
	failures    int
	windowStart time.Time
}

// Limiter tracks failed login attempts per (remote address, account) pair.
// Construct one at boot and hand it to the authentication routes; it is
// never a hidden global.
type Limiter struct {
	mu    sync.Mutex
	seen  map[string]counter
	nowFn func() time.Time
}

// New returns an empty limiter.
func New() *Limiter {
	return &Limiter{
		seen:  make(map[string]counter),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func key(remoteAddr, account string) string {
	return remoteAddr + "|" + strings.ToLower(account)
}

// Check reports whether an attempt for the key may proceed to credential
// checking. When the threshold has been reached inside the window it returns
// domain.RateLimitedError without counting the attempt. An elapsed window is
// cleared lazily here.
func (l *Limiter) Check(remoteAddr, account string) error {
	k := key(remoteAddr, account)
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.seen[k]
	if !ok {
		return nil
	}
	now := l.nowFn()
	if now.Sub(c.windowStart) >= Window {
		delete(l.seen, k)
		return nil
	}
	if c.failures >= Threshold {
		return domain.RateLimitedError{RetryAfter: Window - now.Sub(c.windowStart)}
	}
	return nil
}

// RecordFailure counts a failed attempt. The first failure for a key opens a
// new window; a failure after the window elapsed starts over at one.
func (l *Limiter) RecordFailure(remoteAddr, account string) {
	k := key(remoteAddr, account)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	c, ok := l.seen[k]
	if !ok || now.Sub(c.windowStart) >= Window {
		l.seen[k] = counter{failures: 1, windowStart: now}
		return
	}
	c.failures++
	l.seen[k] = c
}

// RecordSuccess clears the counter for the key. Success is not counted as an
// attempt.
func (l *Limiter) RecordSuccess(remoteAddr, account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, key(remoteAddr, account))
}
