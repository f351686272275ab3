// Package archive persists brain snapshots and a decision provenance log
// in SQLite. Snapshots are opaque payloads keyed by UUID; the provenance
// log records what the core decided each tick so a run can be audited
// after the fact.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id  TEXT PRIMARY KEY,
	tick         INTEGER NOT NULL,
	payload      BLOB NOT NULL,
	note         TEXT,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	tick         INTEGER NOT NULL,
	candidate_id TEXT,
	verdict      TEXT NOT NULL,
	confidence   REAL NOT NULL,
	surprise     REAL NOT NULL,
	reason       TEXT,
	created_at   TEXT NOT NULL
);
`

// #endregion schema

// #region types
// SnapshotMeta describes a stored snapshot without its payload.
type SnapshotMeta struct {
	ID        string
	Tick      uint64
	Note      string
	CreatedAt time.Time
}

// Decision is one row of the provenance log.
type Decision struct {
	Tick        uint64
	CandidateID string
	Verdict     string
	Confidence  float64
	Surprise    float64
	Reason      string
	CreatedAt   time.Time
}

// #endregion types

// #region store
// Store wraps the SQLite archive.
type Store struct {
	db *sql.DB
}

// Open opens the archive database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region snapshots
// SaveSnapshot stores a snapshot payload and returns its id.
func (s *Store) SaveSnapshot(payload []byte, tick uint64, note string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO snapshots (snapshot_id, tick, payload, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, int64(tick), payload, note, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}

// LoadSnapshot returns a snapshot payload by id.
func (s *Store) LoadSnapshot(id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM snapshots WHERE snapshot_id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return payload, nil
}

// Latest returns the most recently stored snapshot payload and its meta.
func (s *Store) Latest() (SnapshotMeta, []byte, error) {
	var (
		meta    SnapshotMeta
		payload []byte
		tick    int64
		created string
	)
	err := s.db.QueryRow(
		`SELECT snapshot_id, tick, payload, COALESCE(note, ''), created_at
		 FROM snapshots ORDER BY created_at DESC, snapshot_id DESC LIMIT 1`,
	).Scan(&meta.ID, &tick, &payload, &meta.Note, &created)
	if err == sql.ErrNoRows {
		return SnapshotMeta{}, nil, fmt.Errorf("archive is empty")
	}
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("latest snapshot: %w", err)
	}
	meta.Tick = uint64(tick)
	meta.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return meta, payload, nil
}

// List returns snapshot metadata, newest first.
func (s *Store) List() ([]SnapshotMeta, error) {
	rows, err := s.db.Query(
		`SELECT snapshot_id, tick, COALESCE(note, ''), created_at
		 FROM snapshots ORDER BY created_at DESC, snapshot_id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var (
			meta    SnapshotMeta
			tick    int64
			created string
		)
		if err := rows.Scan(&meta.ID, &tick, &meta.Note, &created); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		meta.Tick = uint64(tick)
		meta.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, meta)
	}
	return out, rows.Err()
}

// #endregion snapshots

// #region provenance
// LogDecision appends one row to the provenance log.
func (s *Store) LogDecision(d Decision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO decision_log (tick, candidate_id, verdict, confidence, surprise, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(d.Tick),
		nullIfEmpty(d.CandidateID),
		d.Verdict,
		d.Confidence,
		d.Surprise,
		nullIfEmpty(d.Reason),
		d.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// Decisions returns the latest provenance rows, newest first.
func (s *Store) Decisions(limit int) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT tick, COALESCE(candidate_id, ''), verdict, confidence, surprise, COALESCE(reason, ''), created_at
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d       Decision
			tick    int64
			created string
		)
		if err := rows.Scan(&tick, &d.CandidateID, &d.Verdict, &d.Confidence, &d.Surprise, &d.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Tick = uint64(tick)
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// #endregion provenance

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
