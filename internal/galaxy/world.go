// Package galaxy is the world/history engine at the heart of astrogator:
// a turn-indexed, cached view of every world and its per-turn snapshots,
// backed by SQLite, plus the validated bulk save operations the import
// pipeline and UI run against it.
package galaxy

import "strings"

// WorldID identifies a persistent world. Assigned on first save,
// immutable afterwards. Empty means "not yet saved".
type WorldID string

// UnitID identifies a unit in the fleet registry. Worlds reference units
// as scanners; an empty id means the world has no scanner.
type UnitID string

// IsZero reports whether the id is absent or blank.
func (id WorldID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// IsZero reports whether the id is absent or blank.
func (id UnitID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// foldName normalizes a world name for case-insensitive comparison. The fold
// is ASCII-only so the in-memory checks agree with the store's NOCASE
// collation: names differing only in non-ASCII case are distinct worlds on
// both paths.
func foldName(name string) string {
	b := []byte(strings.TrimSpace(name))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// Owner display colors used when no player record resolves the owner name.
const (
	ColorUnowned      = "#808080" // owner is empty
	ColorUnknownOwner = "#c0c0c0" // owner names a player we have no record of
)

// SettingDefaultScanRange is the settings-store key for the fallback scanner
// range. Only changes to this key invalidate the cache.
const SettingDefaultScanRange = "map.default_scan_range"

// FallbackScanRange is used when the settings store has no value either.
const FallbackScanRange = 100

// World is a static game location. Name is unique across all worlds,
// case-insensitively. EI and RER are the two imported game statistics.
type World struct {
	ID        WorldID `json:"id"`
	Name      string  `json:"name"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	EI        int     `json:"ei"`
	RER       int     `json:"rer"`
	Notes     string  `json:"notes"`
	ScannerID UnitID  `json:"scanner_id,omitempty"`
}

// History is one world's ownership and economy snapshot for one turn.
// Owner is a free-text player name, not a foreign key: imports may name
// players the roster has never heard of.
type History struct {
	WorldID   WorldID `json:"world_id"`
	Turn      int     `json:"turn"`
	Owner     string  `json:"owner"`
	Firepower float64 `json:"firepower"`
	Labour    int     `json:"labour"`
	Capital   int     `json:"capital"`
}

// WorldSnapshot joins a World with its History for one turn plus the
// display attributes the map and table renderers need. Snapshots are
// derived during cache rebuild and never persisted.
type WorldSnapshot struct {
	World      World   `json:"world"`
	History    History `json:"history"`
	OwnerColor string  `json:"owner_color"`
	ScanRange  int     `json:"scan_range"`
	Team       string  `json:"team,omitempty"`
}

// MapInfo is the bounding rectangle of all worlds plus the highest turn
// for which any history row exists. All zero when the database is empty.
type MapInfo struct {
	MinX    int `json:"min_x"`
	MaxX    int `json:"max_x"`
	MinY    int `json:"min_y"`
	MaxY    int `json:"max_y"`
	MaxTurn int `json:"max_turn"`
}

// OwnerSummary aggregates one owner's holdings at one turn.
type OwnerSummary struct {
	Owner     string  `json:"owner"`
	Turn      int     `json:"turn"`
	Worlds    int     `json:"worlds"`
	Firepower float64 `json:"firepower"`
	Labour    int     `json:"labour"`
	Capital   int     `json:"capital"`
}

// SummaryRow is one line of the per-turn tabular summary: world columns
// plus history columns coalesced to zero/empty where no row exists.
type SummaryRow struct {
	ID        WorldID `json:"id"`
	Name      string  `json:"name"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	EI        int     `json:"ei"`
	RER       int     `json:"rer"`
	Owner     string  `json:"owner"`
	Firepower float64 `json:"firepower"`
	Labour    int     `json:"labour"`
	Capital   int     `json:"capital"`
	ScanRange int     `json:"scan_range"`
}

// PlayerInfo is the slice of a roster record the snapshot builder needs.
type PlayerInfo struct {
	Name  string
	Color string
	Team  string
}

// PlayerSource lists all known players. Implemented by the roster registry.
type PlayerSource interface {
	ListPlayers() ([]PlayerInfo, error)
}

// ScannerSource resolves a unit id to its scan range. The second return is
// false when the unit is unknown. Implemented by the fleet registry.
type ScannerSource interface {
	ScanRange(id UnitID) (int, bool, error)
}

// SettingsSource supplies the configured fallback scanner range.
type SettingsSource interface {
	DefaultScanRange() (int, error)
}
