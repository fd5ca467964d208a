package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// ErrRunNotFound indicates no snapshot exists for the requested run.
var ErrRunNotFound = errors.New("run not found")

// DB wraps an SQLite database connection storing run snapshots.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens an SQLite database at the given path, creating parent
// directories if needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{
			version: 1,
			sql: `
				CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					goal TEXT NOT NULL,
					status TEXT NOT NULL,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					snapshot TEXT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
			`,
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := db.conn.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := db.conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// CreateRun stores the initial snapshot for a new run.
func (db *DB) CreateRun(snap *Snapshot) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO runs (id, goal, status, created_at, updated_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.Run.ID, snap.Run.Goal, string(snap.Run.Status),
		formatTime(snap.Run.CreatedAt), formatTime(snap.Run.UpdatedAt), string(data))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun loads the latest snapshot for a run.
func (db *DB) GetRun(runID string) (*Snapshot, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var data string
	row := db.conn.QueryRow("SELECT snapshot FROM runs WHERE id = ?", runID)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("query run: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// UpdateRun replaces the stored snapshot for an existing run.
func (db *DB) UpdateRun(snap *Snapshot) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	result, err := db.conn.Exec(`
		UPDATE runs SET goal = ?, status = ?, updated_at = ?, snapshot = ?
		WHERE id = ?
	`, snap.Run.Goal, string(snap.Run.Status), formatTime(snap.Run.UpdatedAt),
		string(data), snap.Run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, snap.Run.ID)
	}
	return nil
}

// ListRuns returns summaries of all stored runs, newest first.
func (db *DB) ListRuns() ([]RunSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, goal, status, created_at, updated_at
		FROM runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		var status string
		if err := rows.Scan(&s.ID, &s.Goal, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Status = models.RunStatus(status)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// formatTime renders a timestamp in RFC3339 for stable storage and sorting.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
