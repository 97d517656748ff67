// Package stats persists visit statistics so they survive restarts of
// the daemon: a per-path visit counter plus a recent-arrival log.
package stats

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS visits (
	path  TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS arrivals (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	path       TEXT NOT NULL,
	at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_arrivals_at ON arrivals(at);
`

// Visit is one row of the visit counter.
type Visit struct {
	Path  string
	Count int
}

// Arrival is one logged arrival.
type Arrival struct {
	SessionID string
	Path      string
	At        time.Time
}

// Recorder writes visit statistics to a sqlite database.
type Recorder struct {
	db *sql.DB
}

// Open opens (creating if needed) the stats database at path.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening stats db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating stats schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// RecordArrival bumps the visit counter for path and appends to the
// arrival log.
func (r *Recorder) RecordArrival(sessionID, path string, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO visits (path, count) VALUES (?, 1)
		 ON CONFLICT(path) DO UPDATE SET count = count + 1`, path); err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO arrivals (session_id, path, at) VALUES (?, ?, ?)`,
		sessionID, path, at.UTC()); err != nil {
		return fmt.Errorf("recording arrival: %w", err)
	}
	return tx.Commit()
}

// VisitCount returns the accumulated count for one path.
func (r *Recorder) VisitCount(path string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT count FROM visits WHERE path = ?`, path).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// TopVisited returns the n most-visited paths, highest first.
func (r *Recorder) TopVisited(n int) ([]Visit, error) {
	rows, err := r.db.Query(
		`SELECT path, count FROM visits ORDER BY count DESC, path ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.Path, &v.Count); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecentArrivals returns the newest n arrivals, newest first.
func (r *Recorder) RecentArrivals(n int) ([]Arrival, error) {
	rows, err := r.db.Query(
		`SELECT session_id, path, at FROM arrivals ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Arrival
	for rows.Next() {
		var a Arrival
		if err := rows.Scan(&a.SessionID, &a.Path, &a.At); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
