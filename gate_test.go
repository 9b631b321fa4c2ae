package quoteboard

import (
	"sync"
	"testing"
)

func TestGateBlocksAfterMaxFailures(t *testing.T) {
	g := NewGate("upload", 3)
	ip := "198.51.100.1"

	for i := 0; i < 3; i++ {
		if got := g.Attempt(ip, "wrong", "secret"); got != GateRejected {
			t.Fatalf("attempt %d: got %v, want rejected", i+1, got)
		}
	}
	if !g.Blocked(ip) {
		t.Fatalf("expected ip to be blocked after 3 failures")
	}
	if got := g.Attempt(ip, "secret", "secret"); got != GateForbidden {
		t.Fatalf("correct password from blocked ip: got %v, want forbidden", got)
	}
}

func TestGateCorrectPasswordResetsCounter(t *testing.T) {
	g := NewGate("home", 5)
	ip := "198.51.100.2"

	for i := 0; i < 4; i++ {
		g.Attempt(ip, "wrong", "secret")
	}
	if got := g.Failures(ip); got != 4 {
		t.Fatalf("failures = %d, want 4", got)
	}
	if got := g.Attempt(ip, "secret", "secret"); got != GatePassed {
		t.Fatalf("got %v, want granted", got)
	}
	if got := g.Failures(ip); got != 0 {
		t.Fatalf("failures after success = %d, want 0", got)
	}
	if got := g.Attempt(ip, "wrong", "secret"); got != GateRejected {
		t.Fatalf("got %v, want rejected", got)
	}
	if g.Blocked(ip) {
		t.Fatalf("one failure after reset must not block")
	}
}

func TestGateIsPerIP(t *testing.T) {
	g := NewGate("upload", 1)
	g.Attempt("198.51.100.3", "wrong", "secret")

	if !g.Blocked("198.51.100.3") {
		t.Fatalf("expected first ip blocked")
	}
	if got := g.Attempt("198.51.100.4", "secret", "secret"); got != GatePassed {
		t.Fatalf("other ip: got %v, want granted", got)
	}
}

func TestAccessControlGatesAreIndependent(t *testing.T) {
	ac := NewAccessControl(DefaultUploadMaxFailures, DefaultHomeMaxFailures)
	ip := "198.51.100.5"

	for i := 0; i < DefaultUploadMaxFailures; i++ {
		ac.Upload.Attempt(ip, "wrong", "secret")
	}
	if !ac.Upload.Blocked(ip) {
		t.Fatalf("expected upload gate to block")
	}
	if ac.Home.Blocked(ip) {
		t.Fatalf("home gate must not share upload failures")
	}
	if got := ac.Home.Attempt(ip, "secret", "secret"); got != GatePassed {
		t.Fatalf("home gate: got %v, want granted", got)
	}
}

func TestGateConcurrentAttempts(t *testing.T) {
	g := NewGate("home", 1000)
	ip := "198.51.100.6"

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Attempt(ip, "wrong", "secret")
		}()
	}
	wg.Wait()

	if got := g.Failures(ip); got != 50 {
		t.Fatalf("failures = %d, want 50", got)
	}
}

func TestGateOutcomeString(t *testing.T) {
	cases := map[GateOutcome]string{
		GatePassed:    "granted",
		GateRejected:  "rejected",
		GateForbidden: "forbidden",
	}
	for o, want := range cases {
		if got := o.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", o, got, want)
		}
	}
}
