// Package importer reads per-turn snapshot CSV files exported from the
// game client and feeds them into the galaxy engine. One file covers one
// turn; columns are name,x,y,ei,rer,owner,firepower,labour,capital.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/astrogator/internal/galaxy"
)

// Stats summarizes one import run.
type Stats struct {
	Turn      int `json:"turn"`
	Updated   int `json:"updated"`
	Created   int `json:"created"`
	Histories int `json:"histories"`
}

type record struct {
	Name      string
	X, Y      int
	EI, RER   int
	Owner     string
	Firepower float64
	Labour    int
	Capital   int
}

// ImportTurn parses the snapshot and saves it through the engine. Records
// are matched against existing worlds by name: matches become updates that
// keep their id and notes, the rest become inserts. Both go to the engine
// in one ordered batch, and the returned ids are read back by position to
// stamp the history rows: updates first, then the new inserts.
func ImportTurn(svc *galaxy.Service, turn int, r io.Reader) (Stats, error) {
	if turn < 1 {
		return Stats{}, &galaxy.InvalidTurnError{Turn: turn, MaxTurn: -1}
	}

	recs, err := parse(r)
	if err != nil {
		return Stats{}, err
	}
	if len(recs) == 0 {
		return Stats{Turn: turn}, nil
	}

	existing, err := svc.Worlds()
	if err != nil {
		return Stats{}, err
	}
	byName := make(map[string]galaxy.World, len(existing))
	for _, w := range existing {
		byName[strings.ToLower(w.Name)] = w
	}

	var updates, inserts []galaxy.World
	var updateRecs, insertRecs []record
	for _, rec := range recs {
		if w, ok := byName[strings.ToLower(rec.Name)]; ok {
			w.X, w.Y, w.EI, w.RER = rec.X, rec.Y, rec.EI, rec.RER
			updates = append(updates, w)
			updateRecs = append(updateRecs, rec)
		} else {
			inserts = append(inserts, galaxy.World{Name: rec.Name, X: rec.X, Y: rec.Y, EI: rec.EI, RER: rec.RER})
			insertRecs = append(insertRecs, rec)
		}
	}

	batch := append(append([]galaxy.World{}, updates...), inserts...)
	ids, err := svc.SaveWorlds(batch)
	if err != nil {
		return Stats{}, fmt.Errorf("save worlds: %w", err)
	}

	ordered := append(append([]record{}, updateRecs...), insertRecs...)
	histories := make([]galaxy.History, len(ordered))
	for i, rec := range ordered {
		histories[i] = galaxy.History{
			WorldID:   ids[i],
			Turn:      turn,
			Owner:     rec.Owner,
			Firepower: rec.Firepower,
			Labour:    rec.Labour,
			Capital:   rec.Capital,
		}
	}
	if err := svc.SaveHistories(histories); err != nil {
		return Stats{}, fmt.Errorf("save histories: %w", err)
	}

	stats := Stats{Turn: turn, Updated: len(updates), Created: len(inserts), Histories: len(histories)}
	slog.Info("turn snapshot imported",
		"turn", turn,
		"updated", humanize.Comma(int64(stats.Updated)),
		"created", humanize.Comma(int64(stats.Created)),
		"histories", humanize.Comma(int64(stats.Histories)),
	)
	return stats, nil
}

func parse(r io.Reader) ([]record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	var out []record
	line := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(fields[0], "name") {
			continue // header row
		}
		if len(fields) != 9 {
			return nil, fmt.Errorf("line %d: expected 9 columns, got %d", line, len(fields))
		}

		rec := record{Name: strings.TrimSpace(fields[0]), Owner: strings.TrimSpace(fields[5])}
		var convErr error
		geti := func(i int) int {
			n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
			if err != nil && convErr == nil {
				convErr = fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
			return n
		}
		rec.X, rec.Y = geti(1), geti(2)
		rec.EI, rec.RER = geti(3), geti(4)
		rec.Firepower, err = strconv.ParseFloat(strings.TrimSpace(fields[6]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d column 7: %w", line, err)
		}
		rec.Labour, rec.Capital = geti(7), geti(8)
		if convErr != nil {
			return nil, convErr
		}
		if rec.Name == "" {
			return nil, fmt.Errorf("line %d: world name is empty", line)
		}
		out = append(out, rec)
	}
	return out, nil
}
