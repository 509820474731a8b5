package fleet

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

func TestSaveAndScanRange(t *testing.T) {
	reg := newRegistry(t)

	u, err := reg.SaveUnit(Unit{Name: "Sentinel Mk1", ScanRange: 150})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if u.ID.IsZero() {
		t.Fatal("save did not assign an id")
	}

	rng, ok, err := reg.ScanRange(u.ID)
	if err != nil || !ok || rng != 150 {
		t.Fatalf("ScanRange = (%d, %v, %v), want (150, true, nil)", rng, ok, err)
	}

	// Saving with the same id updates in place.
	if _, err := reg.SaveUnit(Unit{ID: u.ID, Name: "Sentinel Mk1", ScanRange: 300}); err != nil {
		t.Fatalf("update: %v", err)
	}
	rng, _, _ = reg.ScanRange(u.ID)
	if rng != 300 {
		t.Fatalf("update not applied: range %d", rng)
	}

	units, err := reg.Units()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
}

func TestUnknownUnit(t *testing.T) {
	reg := newRegistry(t)
	rng, ok, err := reg.ScanRange("missing")
	if err != nil || ok || rng != 0 {
		t.Fatalf("unknown unit = (%d, %v, %v), want (0, false, nil)", rng, ok, err)
	}
}

func TestNegativeRangeRejected(t *testing.T) {
	reg := newRegistry(t)
	if _, err := reg.SaveUnit(Unit{Name: "Broken", ScanRange: -1}); err == nil {
		t.Fatal("negative scan range accepted")
	}
}

func TestDeleteUnit(t *testing.T) {
	reg := newRegistry(t)
	u, _ := reg.SaveUnit(Unit{Name: "Temp", ScanRange: 50})

	changes := 0
	reg.Subscribe(func() { changes++ })

	if err := reg.DeleteUnit(u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if changes != 1 {
		t.Fatalf("got %d change notifications, want 1", changes)
	}
	if _, ok, _ := reg.ScanRange(u.ID); ok {
		t.Fatal("unit survived deletion")
	}
}
