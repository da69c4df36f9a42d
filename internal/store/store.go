// Package store provides SQLite persistence for soundscope's search history:
// every search run and the results it showed, in the order they were shown.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a search ID is unknown.
var ErrNotFound = errors.New("store: search not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Search is one recorded search run.
type Search struct {
	ID         string
	Query      string
	Department string
	PageSize   int
	Started    time.Time
	Finished   time.Time // zero while running or if never finished
	Emitted    int
	Held       int
	Err        string
}

// Result is one result row as it was presented.
type Result struct {
	SearchID string
	Position int // 0-based emission order
	Category string
	SoundID  int64
	Name     string
	Username string
	URL      string
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		page_size INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		emitted INTEGER NOT NULL DEFAULT 0,
		held INTEGER NOT NULL DEFAULT 0,
		err TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS results (
		search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		category TEXT NOT NULL,
		sound_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		username TEXT,
		url TEXT,
		PRIMARY KEY (search_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_searches_started ON searches(started_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// BeginSearch records the start of a search.
func (s *Store) BeginSearch(id, query, department string, pageSize int, started time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO searches (id, query, department, page_size, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, query, department, pageSize, started.UTC())
	if err != nil {
		return fmt.Errorf("begin search %s: %w", id, err)
	}
	return nil
}

// AppendResult records one presented result.
func (s *Store) AppendResult(r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO results (search_id, position, category, sound_id, name, username, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.SearchID, r.Position, r.Category, r.SoundID, r.Name, r.Username, r.URL)
	if err != nil {
		return fmt.Errorf("append result %s/%d: %w", r.SearchID, r.Position, err)
	}
	return nil
}

// FinishSearch records the outcome of a search. searchErr may be nil.
func (s *Store) FinishSearch(id string, finished time.Time, emitted, held int, searchErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ""
	if searchErr != nil {
		msg = searchErr.Error()
	}
	res, err := s.db.Exec(`
		UPDATE searches SET finished_at = ?, emitted = ?, held = ?, err = ?
		WHERE id = ?
	`, finished.UTC(), emitted, held, msg, id)
	if err != nil {
		return fmt.Errorf("finish search %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish search %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecentSearches returns up to limit searches, newest first.
func (s *Store) RecentSearches(limit int) ([]Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, query, department, page_size, started_at, finished_at, emitted, held, err
		FROM searches
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Search
	for rows.Next() {
		var sr Search
		var finished sql.NullTime
		if err := rows.Scan(&sr.ID, &sr.Query, &sr.Department, &sr.PageSize,
			&sr.Started, &finished, &sr.Emitted, &sr.Held, &sr.Err); err != nil {
			return nil, err
		}
		if finished.Valid {
			sr.Finished = finished.Time
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Results returns the results of a search in presentation order.
func (s *Store) Results(searchID string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT search_id, position, category, sound_id, name, username, url
		FROM results
		WHERE search_id = ?
		ORDER BY position ASC
	`, searchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var username, url sql.NullString
		if err := rows.Scan(&r.SearchID, &r.Position, &r.Category, &r.SoundID, &r.Name, &username, &url); err != nil {
			return nil, err
		}
		r.Username = username.String
		r.URL = url.String
		out = append(out, r)
	}
	return out, rows.Err()
}
