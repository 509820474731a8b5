package galaxy

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/astrogator/internal/store"
)

// ExternalChange identifies which collaborator reported a change.
type ExternalChange int

const (
	ChangePlayers ExternalChange = iota
	ChangeUnits
)

// Service is the single entry point for world/history data. Every public
// method holds one service-wide lock for its whole duration: the workload
// is one desktop user, and strict serialization (no lost updates, no reads
// of a half-rebuilt cache) matters more than throughput here.
type Service struct {
	mu       sync.Mutex
	db       *store.DB
	players  PlayerSource
	units    ScannerSource
	settings SettingsSource
	metrics  *Metrics
	cache    cache

	listeners map[int]func()
	nextToken int
}

// NewService wires the engine to its store and collaborators. Pass a nil
// metrics to keep counters unregistered (tests create their own).
func NewService(db *store.DB, players PlayerSource, units ScannerSource, settings SettingsSource, metrics *Metrics) *Service {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		db:        db,
		players:   players,
		units:     units,
		settings:  settings,
		metrics:   metrics,
		listeners: make(map[int]func()),
	}
}

// Subscribe registers a data-changed listener and returns a token for
// Unsubscribe. Listeners run after the lock is released, so they may call
// back into the service.
func (s *Service) Subscribe(fn func()) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	s.listeners[s.nextToken] = fn
	return s.nextToken
}

// Unsubscribe removes a previously registered listener.
func (s *Service) Unsubscribe(token int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, token)
}

// OnExternalChange drops the cache in response to a roster or fleet change.
// The rebuild happens lazily on the next read.
func (s *Service) OnExternalChange(kind ExternalChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
	slog.Debug("cache invalidated by external change", "kind", int(kind))
}

// OnSettingChange drops the cache only when the default-scan-range setting
// changed. Every other setting is irrelevant to this view, and re-flushing
// on all of them would throw the cache away for nothing.
func (s *Service) OnSettingChange(name string) {
	if name != SettingDefaultScanRange {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Service) flushLocked() {
	if s.cache.built {
		s.metrics.Flushes.Inc()
	}
	s.cache.flush()
}

// notify invokes the registered listeners outside the lock.
func (s *Service) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Worlds returns every world ordered by name. The slice is a copy; cached
// state is never handed out by reference.
func (s *Service) Worlds() ([]World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return nil, err
	}
	out := make([]World, 0, len(s.cache.ordered))
	for _, id := range s.cache.ordered {
		out = append(out, s.cache.byID[id])
	}
	return out, nil
}

// WorldByID looks a world up by id.
func (s *Service) WorldByID(id WorldID) (World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return World{}, err
	}
	w, ok := s.cache.byID[id]
	if !ok {
		return World{}, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	return w, nil
}

// WorldByName looks a world up by name, case-insensitively.
func (s *Service) WorldByName(name string) (World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return World{}, err
	}
	w, ok := s.cache.byName[foldName(name)]
	if !ok {
		return World{}, fmt.Errorf("%w: %q", ErrWorldNotFound, name)
	}
	return w, nil
}

// HistoryAt returns one world's history for one turn. A world with no row
// at a valid turn yields an empty History (owner "", zero stats); a turn
// outside [1, max] is an invalid-turn error, not a miss.
func (s *Service) HistoryAt(id WorldID, turn int) (History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return History{}, err
	}
	if err := s.cache.checkTurn(turn); err != nil {
		return History{}, err
	}
	snap, err := s.snapshotAtLocked(id, turn)
	if err != nil {
		return History{}, err
	}
	return snap.History, nil
}

// WorldHistory returns every real history row for one world, in turn order.
func (s *Service) WorldHistory(id WorldID) ([]History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return nil, err
	}
	if _, ok := s.cache.byID[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	var out []History
	for t := 1; t <= s.cache.info.MaxTurn; t++ {
		if snap, ok := s.cache.turns[t][id]; ok {
			out = append(out, snap.History)
		}
	}
	return out, nil
}

// SnapshotAt returns the full display snapshot for (world, turn).
func (s *Service) SnapshotAt(id WorldID, turn int) (WorldSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return WorldSnapshot{}, err
	}
	if err := s.cache.checkTurn(turn); err != nil {
		return WorldSnapshot{}, err
	}
	return s.snapshotAtLocked(id, turn)
}

// SnapshotsAt returns one snapshot per world for the given turn, ordered by
// name. Worlds without a row at that turn appear with empty history.
func (s *Service) SnapshotsAt(turn int) ([]WorldSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return nil, err
	}
	if err := s.cache.checkTurn(turn); err != nil {
		return nil, err
	}
	out := make([]WorldSnapshot, 0, len(s.cache.ordered))
	for _, id := range s.cache.ordered {
		snap, err := s.snapshotAtLocked(id, turn)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// MapInfo returns the world bounding box and the highest known turn.
func (s *Service) MapInfo() (MapInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return MapInfo{}, err
	}
	return s.cache.info, nil
}

// HasData reports whether at least one real history row exists at the given
// turn. Out-of-range turns simply report false.
func (s *Service) HasData(turn int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCache(); err != nil {
		return false, err
	}
	if turn < 1 || turn > s.cache.info.MaxTurn {
		return false, nil
	}
	return s.cache.hasRows[turn], nil
}
