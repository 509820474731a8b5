package galaxy

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SaveWorld inserts the world when it has no id, updates it otherwise, and
// returns the (possibly newly generated) id. The cache is flushed and
// listeners are notified once the write is through.
func (s *Service) SaveWorld(w World) (WorldID, error) {
	s.mu.Lock()
	ids, err := s.saveWorldsLocked([]World{w})
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notify()
	return ids[0], nil
}

// SaveWorlds saves an ordered batch. The returned ids line up one-to-one
// with the input: ids[i] belongs to ws[i]. Import callers split the result
// back into "ids for the updates" and "ids for the inserts" by position, so
// that correspondence is a hard contract. The whole batch is validated,
// against itself and against the store, before anything is written; an
// empty batch returns without touching the store or notifying anyone.
func (s *Service) SaveWorlds(ws []World) ([]WorldID, error) {
	if len(ws) == 0 {
		return []WorldID{}, nil
	}
	s.mu.Lock()
	ids, err := s.saveWorldsLocked(ws)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify()
	return ids, nil
}

func (s *Service) saveWorldsLocked(ws []World) ([]WorldID, error) {
	// Normalize into a local copy; the caller's batch stays untouched.
	ws = append([]World(nil), ws...)
	for i := range ws {
		ws[i].Name = strings.TrimSpace(ws[i].Name)
		if ws[i].Name == "" {
			return nil, fmt.Errorf("world %d: name is required", i)
		}
	}

	// Reject the whole batch on an internal name clash before any write.
	seen := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		key := foldName(w.Name)
		if _, dup := seen[key]; dup {
			return nil, &DuplicateNameError{Name: w.Name}
		}
		seen[key] = struct{}{}
	}
	for _, w := range ws {
		if err := s.checkNameFree(w); err != nil {
			return nil, err
		}
	}

	defer s.flushLocked()

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin save worlds: %w", err)
	}
	defer tx.Rollback()

	ids := make([]WorldID, len(ws))
	for i, w := range ws {
		id, err := saveWorldTx(tx, w)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save worlds: %w", err)
	}
	s.metrics.Mutations.Inc()
	return ids, nil
}

// checkNameFree reports a duplicate-name condition when a different world
// already holds this name, case-insensitively. A world is never in
// collision with itself.
func (s *Service) checkNameFree(w World) error {
	var existing string
	err := s.db.Get(&existing, `SELECT id FROM worlds WHERE LOWER(name) = LOWER(?)`, w.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("name lookup for %q: %w", w.Name, err)
	}
	if WorldID(existing) != w.ID {
		return &DuplicateNameError{Name: w.Name}
	}
	return nil
}

func saveWorldTx(tx *sqlx.Tx, w World) (WorldID, error) {
	scanner := sql.NullString{String: string(w.ScannerID), Valid: !w.ScannerID.IsZero()}
	if w.ID.IsZero() {
		id := WorldID(uuid.NewString())
		_, err := tx.Exec(
			`INSERT INTO worlds (id, name, x, y, notes, ei, rer, scanner_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(id), w.Name, w.X, w.Y, w.Notes, w.EI, w.RER, scanner,
		)
		if err != nil {
			return "", fmt.Errorf("insert world %q: %w", w.Name, err)
		}
		return id, nil
	}
	_, err := tx.Exec(
		`UPDATE worlds SET name = ?, x = ?, y = ?, notes = ?, ei = ?, rer = ?, scanner_id = ? WHERE id = ?`,
		w.Name, w.X, w.Y, w.Notes, w.EI, w.RER, scanner, string(w.ID),
	)
	if err != nil {
		return "", fmt.Errorf("update world %q: %w", w.Name, err)
	}
	return w.ID, nil
}

// SaveHistory upserts one history row keyed by (world id, turn). The world
// id must already be set; a detached History cannot be saved on its own.
func (s *Service) SaveHistory(h History) error {
	s.mu.Lock()
	err := s.saveHistoriesLocked([]History{h})
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// SaveHistories applies the upsert rule once per element inside one locked
// section, with a single flush and notification at the end. An empty input
// is a no-op.
func (s *Service) SaveHistories(hs []History) error {
	if len(hs) == 0 {
		return nil
	}
	s.mu.Lock()
	err := s.saveHistoriesLocked(hs)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Service) saveHistoriesLocked(hs []History) error {
	for i, h := range hs {
		if h.WorldID.IsZero() {
			return fmt.Errorf("history %d: world id is required", i)
		}
		if h.Turn < 1 {
			return &InvalidTurnError{Turn: h.Turn, MaxTurn: -1}
		}
	}

	defer s.flushLocked()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin save histories: %w", err)
	}
	defer tx.Rollback()

	for _, h := range hs {
		_, err := tx.Exec(
			`INSERT INTO worlds_history (world_id, turn, owner, firepower, labour, capital)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(world_id, turn) DO UPDATE SET
			   owner = excluded.owner, firepower = excluded.firepower,
			   labour = excluded.labour, capital = excluded.capital`,
			string(h.WorldID), h.Turn, h.Owner, h.Firepower, h.Labour, h.Capital,
		)
		if err != nil {
			return fmt.Errorf("upsert history %s turn %d: %w", h.WorldID, h.Turn, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save histories: %w", err)
	}
	s.metrics.Mutations.Inc()
	return nil
}

// SaveWorldWithHistory saves the world first, then the history re-stamped
// with the world's id. A history that already carries a different world id
// is rejected before anything is written; when the world has no id yet, a
// pre-set history id can never match the one the save will generate.
func (s *Service) SaveWorldWithHistory(w World, h History) (WorldID, error) {
	if !h.WorldID.IsZero() && h.WorldID != w.ID {
		return "", fmt.Errorf("history world id %s does not match world id %q", h.WorldID, w.ID)
	}

	s.mu.Lock()
	id, err := func() (WorldID, error) {
		ids, err := s.saveWorldsLocked([]World{w})
		if err != nil {
			return "", err
		}
		h.WorldID = ids[0]
		if err := s.saveHistoriesLocked([]History{h}); err != nil {
			return "", err
		}
		return ids[0], nil
	}()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notify()
	return id, nil
}

// DeleteWorld removes the world and all of its history rows. Deleting an
// id no world carries is not an error.
func (s *Service) DeleteWorld(id WorldID) error {
	if id.IsZero() {
		return fmt.Errorf("world id is required")
	}
	s.mu.Lock()
	err := s.deleteWorldLocked(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Service) deleteWorldLocked(id WorldID) error {
	defer s.flushLocked()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin delete world: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM worlds_history WHERE world_id = ?`, string(id)); err != nil {
		return fmt.Errorf("delete history for %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM worlds WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("delete world %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete world: %w", err)
	}
	s.metrics.Mutations.Inc()
	return nil
}
