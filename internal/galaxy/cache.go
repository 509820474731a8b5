package galaxy

import (
	"database/sql"
	"fmt"
	"strings"
)

// cache is the materialized view: every world, every turn, one snapshot.
// It is pure derived state, never the system of record, so flushing it is
// always safe. It is rebuilt lazily by the first read that needs it.
type cache struct {
	built   bool
	ordered []WorldID                   // build-query order (by name, case-insensitive)
	byID    map[WorldID]World
	byName  map[string]World            // keyed by folded name
	ranges  map[WorldID]int             // effective scan range per world
	turns   []map[WorldID]WorldSnapshot // index 0 unused; holds real history rows only
	hasRows []bool                      // turns with at least one real history row
	info    MapInfo
}

func (c *cache) flush() { *c = cache{} }

// checkTurn validates a read-side turn against the known range. There is no
// "future, empty" data: only turns in [1, MaxTurn] are addressable.
func (c *cache) checkTurn(turn int) error {
	if turn < 1 || turn > c.info.MaxTurn {
		return &InvalidTurnError{Turn: turn, MaxTurn: c.info.MaxTurn}
	}
	return nil
}

// buildQuery must return one row per world per history turn, worlds with no
// history appearing once with NULL history columns, grouped and ordered by
// world then turn. The rebuild walk depends on that ordering: a new world
// starts exactly where the id differs from the previous row's.
const buildQuery = `
	SELECT w.id, w.name, w.x, w.y, w.notes, w.ei, w.rer, w.scanner_id,
	       h.turn, h.owner, h.firepower, h.labour, h.capital
	FROM worlds w
	LEFT JOIN worlds_history h ON h.world_id = w.id
	ORDER BY w.name COLLATE NOCASE, h.turn`

type joinedRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	X         int             `db:"x"`
	Y         int             `db:"y"`
	Notes     string          `db:"notes"`
	EI        int             `db:"ei"`
	RER       int             `db:"rer"`
	ScannerID sql.NullString  `db:"scanner_id"`
	Turn      sql.NullInt64   `db:"turn"`
	Owner     sql.NullString  `db:"owner"`
	Firepower sql.NullFloat64 `db:"firepower"`
	Labour    sql.NullInt64   `db:"labour"`
	Capital   sql.NullInt64   `db:"capital"`
}

// ensureCache rebuilds the materialized view if it has been flushed.
// Caller must hold s.mu.
func (s *Service) ensureCache() error {
	if s.cache.built {
		return nil
	}

	players, err := s.players.ListPlayers()
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	byOwner := make(map[string]PlayerInfo, len(players))
	for _, p := range players {
		byOwner[strings.ToLower(p.Name)] = p
	}

	defRange, err := s.settings.DefaultScanRange()
	if err != nil {
		return fmt.Errorf("default scan range: %w", err)
	}

	var info MapInfo
	if err := s.db.QueryRow(
		`SELECT COALESCE(MIN(x),0), COALESCE(MAX(x),0), COALESCE(MIN(y),0), COALESCE(MAX(y),0) FROM worlds`,
	).Scan(&info.MinX, &info.MaxX, &info.MinY, &info.MaxY); err != nil {
		return fmt.Errorf("world bounds: %w", err)
	}
	if err := s.db.Get(&info.MaxTurn, `SELECT COALESCE(MAX(turn),0) FROM worlds_history`); err != nil {
		return fmt.Errorf("max turn: %w", err)
	}

	c := cache{
		built:   true,
		byID:    make(map[WorldID]World),
		byName:  make(map[string]World),
		ranges:  make(map[WorldID]int),
		turns:   make([]map[WorldID]WorldSnapshot, info.MaxTurn+1),
		hasRows: make([]bool, info.MaxTurn+1),
		info:    info,
	}
	for t := 1; t <= info.MaxTurn; t++ {
		c.turns[t] = make(map[WorldID]WorldSnapshot)
	}

	rows, err := s.db.Queryx(buildQuery)
	if err != nil {
		return fmt.Errorf("world join query: %w", err)
	}
	defer rows.Close()

	var prev WorldID
	var cur World
	for rows.Next() {
		var r joinedRow
		if err := rows.StructScan(&r); err != nil {
			return fmt.Errorf("scan world row: %w", err)
		}

		id := WorldID(r.ID)
		if id != prev {
			cur = World{
				ID:        id,
				Name:      r.Name,
				X:         r.X,
				Y:         r.Y,
				EI:        r.EI,
				RER:       r.RER,
				Notes:     r.Notes,
				ScannerID: UnitID(r.ScannerID.String),
			}
			rng, err := s.effectiveRange(cur.ScannerID, defRange)
			if err != nil {
				return err
			}
			c.byID[id] = cur
			c.byName[foldName(cur.Name)] = cur
			c.ordered = append(c.ordered, id)
			c.ranges[id] = rng
			prev = id
		}

		if !r.Turn.Valid {
			continue // world with no history yet
		}
		t := int(r.Turn.Int64)
		h := History{
			WorldID:   id,
			Turn:      t,
			Owner:     r.Owner.String,
			Firepower: r.Firepower.Float64,
			Labour:    int(r.Labour.Int64),
			Capital:   int(r.Capital.Int64),
		}
		c.turns[t][id] = buildSnapshot(cur, h, c.ranges[id], byOwner)
		c.hasRows[t] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("walk world rows: %w", err)
	}

	s.cache = c
	s.metrics.Rebuilds.Inc()
	return nil
}

// effectiveRange resolves a world's scanner to its range, falling back to
// the configured default when the world has no scanner, the unit is gone,
// or the unit's range is zero.
func (s *Service) effectiveRange(scanner UnitID, fallback int) (int, error) {
	if scanner.IsZero() {
		return fallback, nil
	}
	rng, ok, err := s.units.ScanRange(scanner)
	if err != nil {
		return 0, fmt.Errorf("scan range for %s: %w", scanner, err)
	}
	if !ok || rng == 0 {
		return fallback, nil
	}
	return rng, nil
}

func buildSnapshot(w World, h History, scanRange int, players map[string]PlayerInfo) WorldSnapshot {
	snap := WorldSnapshot{World: w, History: h, ScanRange: scanRange}
	if h.Owner == "" {
		snap.OwnerColor = ColorUnowned
		return snap
	}
	if p, ok := players[strings.ToLower(h.Owner)]; ok {
		snap.OwnerColor = p.Color
		snap.Team = p.Team
	} else {
		snap.OwnerColor = ColorUnknownOwner
	}
	return snap
}

// snapshotAtLocked returns the snapshot for (id, turn), synthesizing an
// empty unowned one when the world has no history row at that turn.
// Caller must hold s.mu, have built the cache, and validated the turn.
func (s *Service) snapshotAtLocked(id WorldID, turn int) (WorldSnapshot, error) {
	if snap, ok := s.cache.turns[turn][id]; ok {
		return snap, nil
	}
	w, ok := s.cache.byID[id]
	if !ok {
		return WorldSnapshot{}, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	return WorldSnapshot{
		World:      w,
		History:    History{WorldID: id, Turn: turn},
		OwnerColor: ColorUnowned,
		ScanRange:  s.cache.ranges[id],
	}, nil
}
