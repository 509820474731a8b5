package galaxy

import (
	"database/sql"
	"fmt"
)

// Aggregation queries run straight against the store: they are infrequent,
// and the turn-indexed cache is the wrong shape for them.

// OwnerSummary sums firepower, labour and capital and counts worlds across
// all history rows for the owner (case-insensitive) at the given turn.
// No matching rows yields a zero-filled summary, not an error.
func (s *Service) OwnerSummary(owner string, turn int) (OwnerSummary, error) {
	if turn < 1 {
		return OwnerSummary{}, &InvalidTurnError{Turn: turn, MaxTurn: -1}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := OwnerSummary{Owner: owner, Turn: turn}
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(firepower), 0), COALESCE(SUM(labour), 0), COALESCE(SUM(capital), 0)
		 FROM worlds_history
		 WHERE turn = ? AND LOWER(owner) = LOWER(?)`,
		turn, owner,
	).Scan(&sum.Worlds, &sum.Firepower, &sum.Labour, &sum.Capital)
	if err != nil {
		return OwnerSummary{}, fmt.Errorf("owner summary for %q turn %d: %w", owner, turn, err)
	}
	return sum, nil
}

type summaryRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	X         int             `db:"x"`
	Y         int             `db:"y"`
	EI        int             `db:"ei"`
	RER       int             `db:"rer"`
	ScannerID sql.NullString  `db:"scanner_id"`
	Owner     string          `db:"owner"`
	Firepower float64         `db:"firepower"`
	Labour    int             `db:"labour"`
	Capital   int             `db:"capital"`
}

// TurnSummary returns one row per world for the given turn, history columns
// coalesced to zero/empty where no row exists, scanner ranges resolved,
// ready for tabular display.
func (s *Service) TurnSummary(turn int) ([]SummaryRow, error) {
	if turn < 1 {
		return nil, &InvalidTurnError{Turn: turn, MaxTurn: -1}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	defRange, err := s.settings.DefaultScanRange()
	if err != nil {
		return nil, fmt.Errorf("default scan range: %w", err)
	}

	rows, err := s.db.Queryx(
		`SELECT w.id, w.name, w.x, w.y, w.ei, w.rer, w.scanner_id,
		        COALESCE(h.owner, '') AS owner,
		        COALESCE(h.firepower, 0) AS firepower,
		        COALESCE(h.labour, 0) AS labour,
		        COALESCE(h.capital, 0) AS capital
		 FROM worlds w
		 LEFT JOIN worlds_history h ON h.world_id = w.id AND h.turn = ?
		 ORDER BY w.name COLLATE NOCASE`,
		turn,
	)
	if err != nil {
		return nil, fmt.Errorf("turn summary query: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r summaryRow
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		rng, err := s.effectiveRange(UnitID(r.ScannerID.String), defRange)
		if err != nil {
			return nil, err
		}
		out = append(out, SummaryRow{
			ID:        WorldID(r.ID),
			Name:      r.Name,
			X:         r.X,
			Y:         r.Y,
			EI:        r.EI,
			RER:       r.RER,
			Owner:     r.Owner,
			Firepower: r.Firepower,
			Labour:    r.Labour,
			Capital:   r.Capital,
			ScanRange: rng,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walk summary rows: %w", err)
	}
	return out, nil
}
