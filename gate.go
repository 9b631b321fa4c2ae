package quoteboard

import (
	"crypto/subtle"
	"sync"
)

const (
	// DefaultUploadMaxFailures is how many wrong upload passwords an IP may
	// submit before it is blocked.
	DefaultUploadMaxFailures = 3
	// DefaultHomeMaxFailures is the same limit for the home-page gate.
	DefaultHomeMaxFailures = 5
)

// GateOutcome is the result of a password attempt against a Gate.
type GateOutcome int

const (
	GatePassed GateOutcome = iota
	GateRejected
	GateForbidden
)

func (o GateOutcome) String() string {
	switch o {
	case GatePassed:
		return "granted"
	case GateRejected:
		return "rejected"
	case GateForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Gate counts failed password attempts per IP and blocks an IP for the rest
// of the process lifetime once it reaches max failures.
type Gate struct {
	name     string
	max      int
	mu       sync.Mutex
	failures map[string]int
	blocked  map[string]struct{}
}

// NewGate creates a gate that blocks after max failures.
func NewGate(name string, max int) *Gate {
	return &Gate{
		name:     name,
		max:      max,
		failures: make(map[string]int),
		blocked:  make(map[string]struct{}),
	}
}

// Name identifies the gate in logs and metrics.
func (g *Gate) Name() string { return g.name }

// Blocked reports whether ip is blacklisted.
func (g *Gate) Blocked(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.blocked[ip]
	return ok
}

// Failures returns the current failure count for ip.
func (g *Gate) Failures(ip string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures[ip]
}

// Attempt checks supplied against expected for ip. A blocked IP always gets
// GateForbidden, even with the right password.
func (g *Gate) Attempt(ip, supplied, expected string) GateOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.blocked[ip]; ok {
		return GateForbidden
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) == 1 {
		delete(g.failures, ip)
		return GatePassed
	}
	g.failures[ip]++
	if g.failures[ip] >= g.max {
		g.blocked[ip] = struct{}{}
	}
	return GateRejected
}

// AccessControl bundles the two independent password gates.
type AccessControl struct {
	Upload *Gate
	Home   *Gate
}

// NewAccessControl creates the upload and home gates with the given limits.
func NewAccessControl(uploadMax, homeMax int) *AccessControl {
	return &AccessControl{
		Upload: NewGate("upload", uploadMax),
		Home:   NewGate("home", homeMax),
	}
}
