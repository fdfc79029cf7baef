package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pass_id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		image_width INTEGER DEFAULT 0,
		image_height INTEGER DEFAULT 0,
		threshold REAL DEFAULT 0,
		total INTEGER DEFAULT 0,
		above_threshold INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pass_row_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		x1 INTEGER DEFAULT 0,
		y1 INTEGER DEFAULT 0,
		x2 INTEGER DEFAULT 0,
		y2 INTEGER DEFAULT 0,
		has_box INTEGER DEFAULT 0,
		padded INTEGER DEFAULT 0,
		FOREIGN KEY (pass_row_id) REFERENCES passes(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_passes_session ON passes(session_id);
	CREATE INDEX IF NOT EXISTS idx_passes_created_at ON passes(created_at);
	CREATE INDEX IF NOT EXISTS idx_predictions_label ON predictions(label);
	CREATE INDEX IF NOT EXISTS idx_predictions_pass_row_id ON predictions(pass_row_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
