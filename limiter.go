package quoteboard

import (
	"sync"
	"time"
)

const (
	// DefaultLoginMaxAttempts is how many wrong admin passwords an IP may
	// submit inside one LoginWindow.
	DefaultLoginMaxAttempts = 5
	// DefaultLoginWindow is the sliding window for admin login failures.
	DefaultLoginWindow = time.Minute
)

// LoginLimiter caps failed admin logins per IP inside a sliding window.
// Unlike Gate it never blacklists: an IP is let in again once its oldest
// failure leaves the window.
type LoginLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	byIP map[string][]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoginLimiter creates a limiter allowing max failures per window and
// starts its sweeper. Call Close to stop it.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		byIP:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Check reports whether ip may try another login. It records nothing.
func (l *LoginLimiter) Check(ip string) bool {
	return l.RetryAfter(ip) == 0
}

// RetryAfter returns how long ip has to wait before its next login attempt
// is accepted, or zero when it may try now.
func (l *LoginLimiter) RetryAfter(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := l.recent(ip, now)
	if len(hits) < l.max {
		return 0
	}
	return hits[len(hits)-l.max].Add(l.window).Sub(now)
}

// Record counts one failed login for ip.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.byIP[ip] = append(l.recent(ip, now), now)
}

// Failures returns the failures of ip still inside the window.
func (l *LoginLimiter) Failures(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(ip, l.now()))
}

// recent drops the expired failures of ip. Callers hold l.mu.
func (l *LoginLimiter) recent(ip string, now time.Time) []time.Time {
	hits, ok := l.byIP[ip]
	if !ok {
		return nil
	}
	cutoff := now.Add(-l.window)
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.byIP, ip)
		return nil
	}
	l.byIP[ip] = kept
	return kept
}

func (l *LoginLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip := range l.byIP {
		l.recent(ip, now)
	}
}

func (l *LoginLimiter) sweepLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (l *LoginLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}
