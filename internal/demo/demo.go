// Package demo seeds a fresh database with a plausible clustered galaxy so
// the tool has something to show before the first real import. World
// placement and economy stats come from layered simplex noise: dense noise
// regions become clusters, sparse ones rim space.
package demo

import (
	"fmt"
	"log/slog"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/astrogator/internal/fleet"
	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/roster"
)

// Config holds generation parameters.
type Config struct {
	Worlds int   // number of worlds to place
	Turns  int   // turns of history to fabricate
	Seed   int64 // 0 picks a random seed
	Extent int   // half-width of the map square
}

// DefaultConfig returns a small demo galaxy.
func DefaultConfig() Config {
	return Config{Worlds: 40, Turns: 5, Seed: 42, Extent: 500}
}

var namePrefixes = []string{
	"Al", "Bel", "Cyg", "Del", "Eri", "Fom", "Gam", "Hel",
	"Ix", "Kor", "Lyr", "Mir", "Nov", "Oph", "Pra", "Rig",
	"Sir", "Tau", "Ur", "Veg", "Wol", "Xan", "Yed", "Zet",
}

var nameSuffixes = []string{
	"ara", "bos", "cor", "dan", "eus", "far", "gol", "hir",
	"ion", "kal", "lus", "mar", "nix", "oth", "pex", "run",
	"sel", "tis", "umb", "vor",
}

var demoPlayers = []roster.Player{
	{Name: "Harlan", Color: "#d32f2f", Team: "Crimson Pact"},
	{Name: "Mireille", Color: "#1976d2", Team: "Azure League"},
	{Name: "Okonkwo", Color: "#388e3c", Team: "Azure League"},
	{Name: "Tsuruta", Color: "#fbc02d", Team: ""},
}

// Seed populates the database through the engine and registries. It refuses
// to run against a database that already has worlds.
func Seed(svc *galaxy.Service, players *roster.Registry, units *fleet.Registry, cfg Config) error {
	existing, err := svc.Worlds()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("refusing to seed: database already has %d worlds", len(existing))
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))
	density := opensimplex.NewNormalized(seed)
	economy := opensimplex.NewNormalized(seed + 1)

	for _, p := range demoPlayers {
		if _, err := players.SavePlayer(p); err != nil {
			return err
		}
	}

	// A handful of scanner units for random worlds to reference.
	var scannerIDs []galaxy.UnitID
	for i := 0; i < 4; i++ {
		u, err := units.SaveUnit(fleet.Unit{
			Name:      fmt.Sprintf("Sentinel Mk%d", i+1),
			ScanRange: 150 + i*75,
		})
		if err != nil {
			return err
		}
		scannerIDs = append(scannerIDs, u.ID)
	}

	worlds := make([]galaxy.World, 0, cfg.Worlds)
	used := make(map[string]bool)
	for len(worlds) < cfg.Worlds {
		x := rng.Intn(2*cfg.Extent+1) - cfg.Extent
		y := rng.Intn(2*cfg.Extent+1) - cfg.Extent

		// Rejection sampling against the density field clusters the worlds.
		d := density.Eval2(float64(x)/200, float64(y)/200)
		if rng.Float64() > d {
			continue
		}

		name := namePrefixes[rng.Intn(len(namePrefixes))] + nameSuffixes[rng.Intn(len(nameSuffixes))]
		if used[name] {
			name = fmt.Sprintf("%s %s", name, roman(rng.Intn(8)+2))
			if used[name] {
				continue
			}
		}
		used[name] = true

		e := economy.Eval2(float64(x)/150, float64(y)/150)
		w := galaxy.World{
			Name: name,
			X:    x,
			Y:    y,
			EI:   int(e * 100),
			RER:  int((1 - e) * 60),
		}
		if rng.Float64() < 0.25 {
			w.ScannerID = scannerIDs[rng.Intn(len(scannerIDs))]
		}
		worlds = append(worlds, w)
	}

	ids, err := svc.SaveWorlds(worlds)
	if err != nil {
		return err
	}

	// Fabricate history: owned worlds drift upward turn by turn, the rest
	// stay empty for some turns to exercise the synthesized-snapshot path.
	var histories []galaxy.History
	for i, id := range ids {
		owner := ""
		if rng.Float64() < 0.6 {
			owner = demoPlayers[rng.Intn(len(demoPlayers))].Name
		}
		base := float64(worlds[i].EI)
		for t := 1; t <= cfg.Turns; t++ {
			if owner == "" && t < cfg.Turns {
				continue
			}
			histories = append(histories, galaxy.History{
				WorldID:   id,
				Turn:      t,
				Owner:     owner,
				Firepower: base * float64(t) * 0.1,
				Labour:    worlds[i].EI * t,
				Capital:   worlds[i].RER * t,
			})
		}
	}
	if err := svc.SaveHistories(histories); err != nil {
		return err
	}

	slog.Info("demo galaxy seeded", "seed", seed, "worlds", len(worlds), "histories", len(histories))
	return nil
}

func roman(n int) string {
	vals := []struct {
		v int
		s string
	}{{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"}}
	out := ""
	for _, p := range vals {
		for n >= p.v {
			out += p.s
			n -= p.v
		}
	}
	return out
}
