package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides database operations for gate events.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open gate event db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure gate event db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS gate_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gate TEXT NOT NULL,
			outcome TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_gate_events_timestamp ON gate_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_gate_events_gate ON gate_events(gate);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// GetSetting returns a setting value by key, or "" if it does not exist.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Save stores a new event.
func (s *Store) Save(e *Event) error {
	res, err := s.db.Exec(`INSERT INTO gate_events (gate, outcome, ip_hash, timestamp) VALUES (?, ?, ?, ?)`,
		e.Gate, e.Outcome, e.IPHash, e.Timestamp.UTC())
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// Recent returns up to limit events, newest first. An empty gate matches all gates.
func (s *Store) Recent(gate string, limit int) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT id, gate, outcome, ip_hash, timestamp FROM gate_events
		WHERE ? = '' OR gate = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, gate, gate, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Gate, &e.Outcome, &e.IPHash, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Summary counts events per gate and outcome since from.
func (s *Store) Summary(from time.Time) ([]OutcomeCount, error) {
	rows, err := s.db.Query(`
		SELECT gate, outcome, COUNT(*) FROM gate_events
		WHERE timestamp >= ?
		GROUP BY gate, outcome
		ORDER BY gate, outcome`, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []OutcomeCount{}
	for rows.Next() {
		var c OutcomeCount
		if err := rows.Scan(&c.Gate, &c.Outcome, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Cleanup removes events older than the retention period.
func (s *Store) Cleanup(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := s.db.Exec(`DELETE FROM gate_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartCleanupScheduler runs periodic cleanup of old events. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, onError func(error)) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := s.Cleanup(retentionDays); err != nil && onError != nil {
					onError(err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
