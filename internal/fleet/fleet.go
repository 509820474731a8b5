// Package fleet keeps the unit records worlds reference as scanners. Only
// the scan range matters to the map view; the rest of the unit data stays
// in the import files.
package fleet

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/store"
)

// Unit is one fleet entry.
type Unit struct {
	ID        galaxy.UnitID `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	ScanRange int           `db:"scan_range" json:"scan_range"`
}

// Registry is the SQLite-backed unit registry.
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

// Units returns all units ordered by name.
func (r *Registry) Units() ([]Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Unit
	if err := r.db.Select(&out, `SELECT id, name, scan_range FROM units ORDER BY name COLLATE NOCASE`); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return out, nil
}

// ScanRange implements galaxy.ScannerSource. The second return is false
// when no unit carries the id.
func (r *Registry) ScanRange(id galaxy.UnitID) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rng int
	err := r.db.Get(&rng, `SELECT scan_range FROM units WHERE id = ?`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("scan range for %s: %w", id, err)
	}
	return rng, true, nil
}

// SaveUnit inserts or updates a unit and fires the change feed.
func (r *Registry) SaveUnit(u Unit) (Unit, error) {
	if u.ScanRange < 0 {
		return Unit{}, fmt.Errorf("scan range must not be negative")
	}

	r.mu.Lock()
	err := func() error {
		var err error
		if u.ID.IsZero() {
			u.ID = galaxy.UnitID(uuid.NewString())
			_, err = r.db.Exec(`INSERT INTO units (id, name, scan_range) VALUES (?, ?, ?)`,
				string(u.ID), u.Name, u.ScanRange)
		} else {
			_, err = r.db.Exec(`INSERT INTO units (id, name, scan_range) VALUES (?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET name = excluded.name, scan_range = excluded.scan_range`,
				string(u.ID), u.Name, u.ScanRange)
		}
		if err != nil {
			return fmt.Errorf("save unit %q: %w", u.Name, err)
		}
		return nil
	}()
	r.mu.Unlock()
	if err != nil {
		return Unit{}, err
	}
	r.notify()
	return u, nil
}

// DeleteUnit removes a unit. Unknown ids are not an error. Worlds that
// referenced the unit fall back to the default scan range on the next
// cache rebuild.
func (r *Registry) DeleteUnit(id galaxy.UnitID) error {
	r.mu.Lock()
	_, err := r.db.Exec(`DELETE FROM units WHERE id = ?`, string(id))
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete unit %s: %w", id, err)
	}
	r.notify()
	return nil
}
