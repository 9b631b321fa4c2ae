package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettingsRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	v, err := s.GetSetting("missing")
	if err != nil || v != "" {
		t.Fatalf("missing key: got %q, %v", v, err)
	}
	if err := s.SetSetting("k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting("k", "two"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetSetting("k"); v != "two" {
		t.Fatalf("got %q, want upserted value", v)
	}
}

func TestHasherIsStableAndSalted(t *testing.T) {
	s := setupTestStore(t)

	h1, err := NewHasher(s)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := NewHasher(s)
	if err != nil {
		t.Fatal(err)
	}
	a := h1.HashIP("203.0.113.1")
	if len(a) != 16 {
		t.Fatalf("hash length = %d, want 16", len(a))
	}
	if a != h2.HashIP("203.0.113.1") {
		t.Fatal("salt must persist across hashers on the same store")
	}
	if a == h1.HashIP("203.0.113.2") {
		t.Fatal("different ips must hash differently")
	}

	other := setupTestStore(t)
	h3, _ := NewHasher(other)
	if a == h3.HashIP("203.0.113.1") {
		t.Fatal("separate installations should use separate salts")
	}
}

func TestRecorderRecentAndSummary(t *testing.T) {
	s := setupTestStore(t)
	r, err := NewRecorder(s)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	r.Record(GateUpload, OutcomeRejected, "203.0.113.1")
	r.Record(GateUpload, OutcomeRejected, "203.0.113.1")
	r.Record(GateUpload, OutcomeBlocked, "203.0.113.1")
	r.Record(GateHome, OutcomeGranted, "203.0.113.2")

	all, err := s.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d events, want 4", len(all))
	}
	if all[0].Gate != GateHome || all[1].Outcome != OutcomeBlocked {
		t.Fatalf("events not newest first: %+v", all)
	}
	if all[0].IPHash == "203.0.113.2" {
		t.Fatal("raw ip stored")
	}

	uploads, _ := s.Recent(GateUpload, 2)
	if len(uploads) != 2 {
		t.Fatalf("limit/filter: got %d events", len(uploads))
	}
	for _, e := range uploads {
		if e.Gate != GateUpload {
			t.Fatalf("unexpected gate %q", e.Gate)
		}
	}

	summary, err := s.Summary(base)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	counts := map[string]int{}
	for _, c := range summary {
		counts[c.Gate+"/"+c.Outcome] = c.Count
	}
	if counts["upload/rejected"] != 2 || counts["upload/blocked"] != 1 || counts["home/granted"] != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestCleanupRemovesOldEvents(t *testing.T) {
	s := setupTestStore(t)

	old := &Event{Gate: GateAdmin, Outcome: OutcomeRejected, IPHash: "x", Timestamp: time.Now().AddDate(0, 0, -100)}
	recent := &Event{Gate: GateAdmin, Outcome: OutcomeGranted, IPHash: "y", Timestamp: time.Now()}
	if err := s.Save(old); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(recent); err != nil {
		t.Fatal(err)
	}

	n, err := s.Cleanup(90)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d events, want 1", n)
	}
	left, _ := s.Recent("", 10)
	if len(left) != 1 || left[0].ID != recent.ID {
		t.Fatalf("unexpected remaining events %+v", left)
	}
}
