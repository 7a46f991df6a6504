// Package session persists the session registry and viewer settings in a
// local SQLite database. This is the durable counterpart of the dashboard's
// persisted stores: cheap to rebuild, never the source of truth for events.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Session is one registered assessment session.
type Session struct {
	ID         string
	Name       string
	BaseURL    string
	CreatedAt  time.Time
	LastSeenAt time.Time
	EventCount int
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the session database and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("session: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			base_url TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_seen_at TEXT NOT NULL,
			event_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register records a new session, generating an id when none is given.
func (s *Store) Register(sess Session) (Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastSeenAt.IsZero() {
		sess.LastSeenAt = now
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sessions (id, name, base_url, created_at, last_seen_at, event_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.BaseURL,
		sess.CreatedAt.Format(time.RFC3339), sess.LastSeenAt.Format(time.RFC3339), sess.EventCount,
	)
	if err != nil {
		return Session{}, fmt.Errorf("session: register: %w", err)
	}
	return sess, nil
}

// Touch updates a session's last-seen time and event count.
func (s *Store) Touch(id string, eventCount int) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET last_seen_at = ?, event_count = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), eventCount, id,
	)
	if err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session: %s not found", id)
	}
	return nil
}

// Get returns one session by id.
func (s *Store) Get(id string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT id, name, base_url, created_at, last_seen_at, event_count FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session: %s not found", id)
	}
	return sess, err
}

// List returns all sessions, most recently seen first.
func (s *Store) List() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, name, base_url, created_at, last_seen_at, event_count
		 FROM sessions ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var createdAt, lastSeenAt string
	if err := row.Scan(&sess.ID, &sess.Name, &sess.BaseURL, &createdAt, &lastSeenAt, &sess.EventCount); err != nil {
		return Session{}, err
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sess.LastSeenAt, _ = time.Parse(time.RFC3339, lastSeenAt)
	return sess, nil
}

// --- Viewer settings ---

// settingsKey is the settings-table row holding viewer settings.
const settingsKey = "viewer"

// Settings are the persisted viewer preferences.
type Settings struct {
	PollInterval time.Duration `json:"poll_interval"`
	Filters      []string      `json:"filters"`
	AutoScroll   bool          `json:"auto_scroll"`
}

// DefaultSettings returns the built-in viewer settings.
func DefaultSettings() Settings {
	return Settings{
		PollInterval: time.Second,
		Filters:      []string{"all"},
		AutoScroll:   true,
	}
}

// SaveSettings persists viewer settings as JSON.
func (s *Store) SaveSettings(settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("session: marshal settings: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, settingsKey, string(data))
	if err != nil {
		return fmt.Errorf("session: save settings: %w", err)
	}
	return nil
}

// HasSettings reports whether viewer settings have ever been persisted, so
// callers can distinguish stored defaults from a fresh database.
func (s *Store) HasSettings() (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM settings WHERE key = ?`, settingsKey).Scan(&n); err != nil {
		return false, fmt.Errorf("session: check settings: %w", err)
	}
	return n > 0, nil
}

// LoadSettings returns the persisted viewer settings, falling back to
// defaults when nothing is stored or the stored value fails validation.
// Corrupt persisted data is reported, never silently accepted.
func (s *Store) LoadSettings() (Settings, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("session: load settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("session: corrupt settings, using defaults: %w", err)
	}
	if settings.PollInterval < 100*time.Millisecond {
		settings.PollInterval = DefaultSettings().PollInterval
	}
	if len(settings.Filters) == 0 {
		settings.Filters = DefaultSettings().Filters
	}
	return settings, nil
}
