// Package settings is the persistent key/value store for tool preferences.
// Change notifications carry the setting key so subscribers can ignore
// keys they do not care about.
package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/store"
)

// Store is the SQLite-backed settings store.
type Store struct {
	mu        sync.Mutex
	db        *store.DB
	subs      map[int]func(key string)
	nextToken int
}

// NewStore wraps the shared database.
func NewStore(db *store.DB) *Store {
	return &Store{db: db, subs: make(map[int]func(string))}
}

// Subscribe registers a change listener keyed by setting name; it runs
// after the store lock is released. Returns a token for Unsubscribe.
func (s *Store) Subscribe(fn func(key string)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	s.subs[s.nextToken] = fn
	return s.nextToken
}

// Unsubscribe removes a change listener.
func (s *Store) Unsubscribe(token int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, token)
}

func (s *Store) notify(key string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}

// Get returns the raw value for key; the second return is false when the
// key has never been set.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.Get(&value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

// GetInt returns the value for key parsed as an integer, or fallback when
// the key is unset or unparseable.
func (s *Store) GetInt(key string, fallback int) (int, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

// Set upserts a setting and notifies subscribers with the key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	s.notify(key)
	return nil
}

// SetInt stores an integer setting.
func (s *Store) SetInt(key string, value int) error {
	return s.Set(key, strconv.Itoa(value))
}

// DefaultScanRange implements galaxy.SettingsSource.
func (s *Store) DefaultScanRange() (int, error) {
	return s.GetInt(galaxy.SettingDefaultScanRange, galaxy.FallbackScanRange)
}
