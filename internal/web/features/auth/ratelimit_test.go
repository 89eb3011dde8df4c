package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testClock drives the limiter's clock by hand.
type testClock struct {
	now time.Time
}

func (c *testClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestLimiter(max int, window, lockout time.Duration) (*Limiter, *testClock) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(max, window, lockout)
	l.now = func() time.Time { return clock.now }
	return l, clock
}

func TestLimiterLocksAfterMaxFailures(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute, 5*time.Minute)

	l.Fail("alex", "10.0.0.1")
	l.Fail("alex", "10.0.0.1")
	ok, _ := l.Allow("alex", "10.0.0.1")
	assert.True(t, ok, "below the limit, attempts are allowed")

	l.Fail("alex", "10.0.0.1")
	ok, retry := l.Allow("alex", "10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute, retry)

	clock.advance(5*time.Minute + time.Second)
	ok, _ = l.Allow("alex", "10.0.0.1")
	assert.True(t, ok, "lockout expires")
}

func TestLimiterWindowExpiryForgetsFailures(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute, 5*time.Minute)

	l.Fail("alex", "10.0.0.1")
	l.Fail("alex", "10.0.0.1")
	clock.advance(2 * time.Minute)

	// The old failures fell out of the window, so two more do not lock.
	l.Fail("alex", "10.0.0.1")
	l.Fail("alex", "10.0.0.1")
	ok, _ := l.Allow("alex", "10.0.0.1")
	assert.True(t, ok)

	// A third inside the fresh window does.
	l.Fail("alex", "10.0.0.1")
	ok, _ = l.Allow("alex", "10.0.0.1")
	assert.False(t, ok)
}

func TestLimiterPairsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(2, time.Minute, 5*time.Minute)

	l.Fail("alex", "10.0.0.1")
	l.Fail("alex", "10.0.0.1")

	ok, _ := l.Allow("alex", "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow("alex", "10.0.0.2")
	assert.True(t, ok, "same username, different address")

	ok, _ = l.Allow("morgan", "10.0.0.1")
	assert.True(t, ok, "same address, different username")
}

func TestLimiterResetClearsThePair(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute, 5*time.Minute)

	l.Fail("alex", "10.0.0.1")
	l.Fail("alex", "10.0.0.1")
	l.Reset("alex", "10.0.0.1")

	l.Fail("alex", "10.0.0.1")
	l.Fail("alex", "10.0.0.1")
	ok, _ := l.Allow("alex", "10.0.0.1")
	assert.True(t, ok, "reset started a fresh count")
}

func TestLimiterPrunesExpiredBuckets(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute, 5*time.Minute)

	for i := 0; i < pruneThreshold+1; i++ {
		l.Fail("alex", addr(i))
	}
	clock.advance(10 * time.Minute)
	l.Fail("alex", "fresh")

	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	assert.Equal(t, 1, n, "only the fresh bucket survives the sweep")
}

func addr(i int) string {
	return fmt.Sprintf("10.0.%d.%d", i/256, i%256)
}
