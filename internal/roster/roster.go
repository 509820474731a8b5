// Package roster keeps the known players: name, display color, team.
// Owner names in imported history are free text, so the roster may well be
// missing players that own worlds; the galaxy snapshot builder falls back
// to a neutral color for those.
package roster

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/store"
)

// Player is one roster entry.
type Player struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Color string `db:"color" json:"color"`
	Team  string `db:"team" json:"team"`
}

// Registry is the SQLite-backed player registry.
type Registry struct {
	mu        sync.Mutex
	db        *store.DB
	subs      map[int]func()
	nextToken int
}

// NewRegistry wraps the shared database.
func NewRegistry(db *store.DB) *Registry {
	return &Registry{db: db, subs: make(map[int]func())}
}

// Subscribe registers a change listener; it runs after the registry lock is
// released. Returns a token for Unsubscribe.
func (r *Registry) Subscribe(fn func()) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextToken++
	r.subs[r.nextToken] = fn
	return r.nextToken
}

// Unsubscribe removes a change listener.
func (r *Registry) Unsubscribe(token int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, token)
}

func (r *Registry) notify() {
	r.mu.Lock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Players returns all roster entries ordered by name.
func (r *Registry) Players() ([]Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Player
	if err := r.db.Select(&out, `SELECT id, name, color, team FROM players ORDER BY name COLLATE NOCASE`); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return out, nil
}

// ListPlayers implements galaxy.PlayerSource.
func (r *Registry) ListPlayers() ([]galaxy.PlayerInfo, error) {
	ps, err := r.Players()
	if err != nil {
		return nil, err
	}
	out := make([]galaxy.PlayerInfo, len(ps))
	for i, p := range ps {
		out[i] = galaxy.PlayerInfo{Name: p.Name, Color: p.Color, Team: p.Team}
	}
	return out, nil
}

// SavePlayer inserts or updates a player and fires the change feed.
// Names are unique case-insensitively, like world names.
func (r *Registry) SavePlayer(p Player) (Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Player{}, fmt.Errorf("player name is required")
	}

	r.mu.Lock()
	err := func() error {
		var existing string
		err := r.db.Get(&existing, `SELECT id FROM players WHERE LOWER(name) = LOWER(?)`, p.Name)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("player lookup: %w", err)
		}
		if err == nil && existing != p.ID {
			return fmt.Errorf("player name %q is already taken", p.Name)
		}

		if p.ID == "" {
			p.ID = uuid.NewString()
			_, err = r.db.Exec(`INSERT INTO players (id, name, color, team) VALUES (?, ?, ?, ?)`,
				p.ID, p.Name, p.Color, p.Team)
		} else {
			_, err = r.db.Exec(`UPDATE players SET name = ?, color = ?, team = ? WHERE id = ?`,
				p.Name, p.Color, p.Team, p.ID)
		}
		if err != nil {
			return fmt.Errorf("save player %q: %w", p.Name, err)
		}
		return nil
	}()
	r.mu.Unlock()
	if err != nil {
		return Player{}, err
	}
	r.notify()
	return p, nil
}

// DeletePlayer removes a player. Unknown ids are not an error.
func (r *Registry) DeletePlayer(id string) error {
	r.mu.Lock()
	_, err := r.db.Exec(`DELETE FROM players WHERE id = ?`, id)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete player %s: %w", id, err)
	}
	r.notify()
	return nil
}
