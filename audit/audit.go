// Package audit keeps a privacy-preserving log of password gate outcomes.
// Entries are informational only; gate decisions never read them.
package audit

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Gate names.
const (
	GateUpload = "upload"
	GateHome   = "home"
	GateAdmin  = "admin"
)

// Outcomes.
const (
	OutcomeGranted   = "granted"
	OutcomeRejected  = "rejected"
	OutcomeBlocked   = "blocked"
	OutcomeForbidden = "forbidden"
	OutcomeLimited   = "limited"
)

// Event is one recorded gate decision.
type Event struct {
	ID        int64     `json:"id"`
	Gate      string    `json:"gate"`
	Outcome   string    `json:"outcome"`
	IPHash    string    `json:"ipHash"` // Salted hash, never the raw address
	Timestamp time.Time `json:"at"`
}

// OutcomeCount is an aggregate row for Summary.
type OutcomeCount struct {
	Gate    string `json:"gate"`
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// Hasher turns IP addresses into salted, truncated SHA-256 digests.
type Hasher struct {
	salt string
}

// NewHasher loads the per-installation salt from store, generating and
// saving one on first use.
func NewHasher(store *Store) (*Hasher, error) {
	s, err := store.GetSetting("hash_salt")
	if err != nil {
		return nil, fmt.Errorf("read hash salt: %w", err)
	}
	if s == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		s = hex.EncodeToString(b)
		if err := store.SetSetting("hash_salt", s); err != nil {
			return nil, fmt.Errorf("store hash salt: %w", err)
		}
	}
	return &Hasher{salt: s}, nil
}

// HashIP creates a salted SHA-256 hash of an IP address.
func (h *Hasher) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(h.salt + ip))
	return hex.EncodeToString(sum[:])[:16]
}

// Recorder hashes addresses and writes events to a Store.
type Recorder struct {
	store  *Store
	hasher *Hasher
	now    func() time.Time
}

// NewRecorder prepares a Recorder backed by store.
func NewRecorder(store *Store) (*Recorder, error) {
	hasher, err := NewHasher(store)
	if err != nil {
		return nil, err
	}
	return &Recorder{store: store, hasher: hasher, now: time.Now}, nil
}

// Record stores one gate decision for ip.
func (r *Recorder) Record(gate, outcome, ip string) error {
	return r.store.Save(&Event{
		Gate:      gate,
		Outcome:   outcome,
		IPHash:    r.hasher.HashIP(ip),
		Timestamp: r.now().UTC(),
	})
}

// Store returns the underlying event store.
func (r *Recorder) Store() *Store {
	return r.store
}
