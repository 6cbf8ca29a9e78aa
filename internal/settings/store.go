// Package settings persists user preferences (API key, model name) in a
// local SQLite file so they survive restarts. Plain key/value rows; the
// database lives next to the binary unless configured otherwise.
package settings

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"bookrater/internal/gemini"
)

const (
	keyAPIKey = "bookRatingTool_apiKey"
	keyModel  = "bookRatingTool_modelName"

	// DefaultModel is used until the user picks one.
	DefaultModel = "gemini-1.5-flash"
)

const schema = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store is a key/value settings database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init settings db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for key, or "" when unset.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) APIKey() (string, error)     { return s.Get(keyAPIKey) }
func (s *Store) SetAPIKey(key string) error  { return s.Set(keyAPIKey, key) }
func (s *Store) ClearAPIKey() error          { return s.Delete(keyAPIKey) }
func (s *Store) SetModel(model string) error { return s.Set(keyModel, model) }

// Model returns the configured model name, falling back to DefaultModel.
func (s *Store) Model() (string, error) {
	m, err := s.Get(keyModel)
	if err != nil {
		return "", err
	}
	if m == "" {
		return DefaultModel, nil
	}
	return m, nil
}

// Credentials assembles the gateway credentials from the store. The key
// may be empty; the gateway rejects that before any network call.
func (s *Store) Credentials() (gemini.Credentials, error) {
	key, err := s.APIKey()
	if err != nil {
		return gemini.Credentials{}, err
	}
	model, err := s.Model()
	if err != nil {
		return gemini.Credentials{}, err
	}
	return gemini.Credentials{APIKey: key, Model: model}, nil
}
