package roster

import (
	"path/filepath"
	"testing"

	"github.com/talgya/astrogator/internal/store"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRegistry(db)
}

func TestSavePlayer(t *testing.T) {
	reg := newRegistry(t)

	changes := 0
	reg.Subscribe(func() { changes++ })

	p, err := reg.SavePlayer(Player{Name: " Harlan ", Color: "#d32f2f", Team: "Crimson Pact"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.ID == "" {
		t.Fatal("save did not assign an id")
	}
	if p.Name != "Harlan" {
		t.Fatalf("name not trimmed: %q", p.Name)
	}
	if changes != 1 {
		t.Fatalf("got %d change notifications, want 1", changes)
	}

	if _, err := reg.SavePlayer(Player{Name: "HARLAN"}); err == nil {
		t.Fatal("case-insensitive name clash accepted")
	}
	if _, err := reg.SavePlayer(Player{ID: p.ID, Name: "harlan", Color: "#000000"}); err != nil {
		t.Fatalf("re-saving a player under their own name must succeed: %v", err)
	}

	players, err := reg.Players()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(players) != 1 || players[0].Color != "#000000" {
		t.Fatalf("update not applied: %+v", players)
	}
}

func TestListPlayersOrdered(t *testing.T) {
	reg := newRegistry(t)
	for _, name := range []string{"zara", "Amos", "mira"} {
		if _, err := reg.SavePlayer(Player{Name: name}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	infos, err := reg.ListPlayers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Amos", "mira", "zara"}
	for i, w := range want {
		if infos[i].Name != w {
			t.Fatalf("position %d: got %s, want %s", i, infos[i].Name, w)
		}
	}
}

func TestDeletePlayer(t *testing.T) {
	reg := newRegistry(t)
	p, _ := reg.SavePlayer(Player{Name: "Temp"})
	if err := reg.DeletePlayer(p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	players, _ := reg.Players()
	if len(players) != 0 {
		t.Fatalf("player survived deletion: %+v", players)
	}
	if err := reg.DeletePlayer("no-such-id"); err != nil {
		t.Fatalf("deleting unknown id should be a no-op: %v", err)
	}
}
