package store

import (
	"database/sql"
	"sync"

	"go.uber.org/zap"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single-file sqlite database, the durable
// analog of an origin-scoped key-value store. A single mutex serializes
// read-modify-write cycles to emulate the single-threaded execution model
// the persisted layout assumes.
type SQLite struct {
	mu   sync.Mutex
	conn *sql.DB
}

// NewSQLite opens (creating if needed) the slot store at path.
// Use ":memory:" for a throwaway store.
func NewSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// One connection: every operation is a full-slot rewrite, there is
	// nothing to gain from a pool and :memory: stores would fragment.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	const migrate = `CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := conn.Exec(migrate); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("opened slot store", zap.String("path", path))
	return &SQLite{conn: conn}, nil
}

// Get returns the value stored under key.
func (s *SQLite) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.conn.QueryRow("SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes value under key, replacing any prior value.
func (s *SQLite) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		"INSERT INTO slots (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// Delete removes the slot if present.
func (s *SQLite) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec("DELETE FROM slots WHERE key = ?", key)
	return err
}

// Close releases the underlying connection.
func (s *SQLite) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
