package quoteboard

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, max int, window time.Duration) (*LoginLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLoginLimiter(max, window)
	l.now = clock.now
	t.Cleanup(l.Close)
	return l, clock
}

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Minute)
	ip := "203.0.113.10"

	if !limiter.Check(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	limiter.Record(ip)
	if !limiter.Check(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestLoginLimiterCheckDoesNotCount(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ip := "203.0.113.15"

	for i := 0; i < 5; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("check %d: expected allowed without recorded failures", i)
		}
	}
	if n := limiter.Failures(ip); n != 0 {
		t.Fatalf("failures = %d, want 0", n)
	}
}

func TestLoginLimiterSlidingWindow(t *testing.T) {
	limiter, clock := newTestLimiter(t, 2, time.Minute)
	ip := "203.0.113.20"

	limiter.Record(ip)
	clock.advance(20 * time.Second)
	limiter.Record(ip)

	if wait := limiter.RetryAfter(ip); wait != 40*time.Second {
		t.Fatalf("RetryAfter = %v, want 40s", wait)
	}

	clock.advance(40 * time.Second)
	if !limiter.Check(ip) {
		t.Fatalf("expected an attempt once the oldest failure expired")
	}
	if n := limiter.Failures(ip); n != 1 {
		t.Fatalf("failures = %d, want 1", n)
	}

	clock.advance(20 * time.Second)
	if n := limiter.Failures(ip); n != 0 {
		t.Fatalf("failures after full window = %d, want 0", n)
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)

	limiter.Record("203.0.113.30")
	if !limiter.Check("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Check("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestLoginLimiterSweepForgetsIdleIPs(t *testing.T) {
	limiter, clock := newTestLimiter(t, 3, time.Minute)
	limiter.Record("203.0.113.40")
	limiter.Record("203.0.113.41")

	clock.advance(2 * time.Minute)
	limiter.sweep()

	limiter.mu.Lock()
	n := len(limiter.byIP)
	limiter.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected sweep to drop expired entries, %d left", n)
	}
}

func TestLoginLimiterCloseTwice(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Minute)
	limiter.Close()
	limiter.Close()
}
