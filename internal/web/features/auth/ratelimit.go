package auth

import (
	"sync"
	"time"
)

// pruneThreshold is the bucket count above which Fail sweeps out
// expired entries.
const pruneThreshold = 1024

// Limiter throttles failed sign-in attempts. Each username plus remote
// address pair gets a fixed window of allowed failures; exceeding it
// locks the pair out for the lockout duration. Successful sign-ins
// clear the pair.
type Limiter struct {
	mu      sync.Mutex
	now     func() time.Time
	max     int
	window  time.Duration
	lockout time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

// NewLimiter creates a limiter allowing max failures per window before
// locking a username+address pair out for lockout.
func NewLimiter(max int, window, lockout time.Duration) *Limiter {
	return &Limiter{
		now:     time.Now,
		max:     max,
		window:  window,
		lockout: lockout,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether a sign-in attempt for the pair may proceed.
// When locked out it returns false and the time remaining until the
// next attempt is allowed.
func (l *Limiter) Allow(username, addr string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key(username, addr)]
	if !ok {
		return true, 0
	}
	if remaining := b.lockedUntil.Sub(l.now()); remaining > 0 {
		return false, remaining
	}
	return true, 0
}

// Fail records a failed attempt for the pair.
func (l *Limiter) Fail(username, addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(username, addr)
	b, ok := l.buckets[k]
	if !ok {
		b = &bucket{windowStart: now}
		l.buckets[k] = b
	}

	if now.Sub(b.windowStart) > l.window {
		b.windowStart = now
		b.count = 0
	}

	b.count++
	if b.count >= l.max {
		b.lockedUntil = now.Add(l.lockout)
		b.count = 0
		b.windowStart = now
	}

	if len(l.buckets) > pruneThreshold {
		l.pruneLocked(now)
	}
}

// Reset clears the pair after a successful sign-in.
func (l *Limiter) Reset(username, addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key(username, addr))
}

// pruneLocked drops buckets whose window and lockout have both passed.
func (l *Limiter) pruneLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.windowStart) > l.window && !b.lockedUntil.After(now) {
			delete(l.buckets, k)
		}
	}
}

func key(username, addr string) string {
	return username + "\x00" + addr
}
