// Package store provides the SQLite data layer for easel.
//
// The store is the source of truth across runs - curated images, theme
// query expansions, per-(image, theme) feedback scores and practice session
// history all live in a single database file. No in-memory component owns
// durable state.
//
// # Thread Safety
//
// Store is safe for concurrent use. The underlying sql.DB serializes
// access. Individual operations are atomic; read-modify-write sequences
// (feedback score updates) are not atomic across processes - single-process
// operation is the supported deployment.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store handles persistence of curated images and practice sessions.
type Store struct {
	db *sql.DB
}

// Open creates a new SQLite store at the given path.
//
// The database is created if it doesn't exist, and migrations are applied
// automatically. Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	// For in-memory databases, use shared cache mode so all connections
	// in the pool see the same database
	connStr := dbPath
	if dbPath == ":memory:" {
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

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS theme_queries (
		theme TEXT PRIMARY KEY,
		queries TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS curated_images (
		provider_id TEXT PRIMARY KEY,
		description TEXT,
		url TEXT NOT NULL,
		thumbnail TEXT,
		attribution TEXT,
		times_used INTEGER DEFAULT 0,
		last_used DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS theme_images (
		theme TEXT NOT NULL,
		provider_id TEXT NOT NULL REFERENCES curated_images(provider_id),
		position INTEGER NOT NULL,
		PRIMARY KEY (theme, provider_id)
	);

	CREATE TABLE IF NOT EXISTS image_theme_scores (
		provider_id TEXT NOT NULL,
		theme TEXT NOT NULL,
		score REAL DEFAULT 1.0,
		times_shown INTEGER DEFAULT 0,
		last_shown DATETIME,
		PRIMARY KEY (provider_id, theme)
	);

	CREATE TABLE IF NOT EXISTS practice_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		theme TEXT NOT NULL,
		duration_per_image INTEGER NOT NULL,
		total_images INTEGER NOT NULL,
		images_completed INTEGER DEFAULT 0,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		status TEXT DEFAULT 'in_progress'
	);

	CREATE TABLE IF NOT EXISTS session_images (
		session_id INTEGER NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
		provider_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		time_spent INTEGER,
		skipped INTEGER DEFAULT 0,
		PRIMARY KEY (session_id, provider_id)
	);

	CREATE INDEX IF NOT EXISTS idx_theme_images_theme ON theme_images(theme);
	CREATE INDEX IF NOT EXISTS idx_image_scores_theme ON image_theme_scores(theme);
	CREATE INDEX IF NOT EXISTS idx_session_images_session ON session_images(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON practice_sessions(started_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
