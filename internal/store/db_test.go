package store

import (
	"path/filepath"
	"testing"
)

func TestOpenBootstrapsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"worlds", "worlds_history", "players", "units", "settings"} {
		var n int
		if err := db.Get(&n, `SELECT COUNT(*) FROM `+table); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// Turn zero violates the history check constraint.
	_, err = db.Exec(`INSERT INTO worlds_history (world_id, turn) VALUES ('w', 0)`)
	if err == nil {
		t.Fatal("turn 0 accepted by the schema")
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO settings (key, value) VALUES ('k', 'v')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()
	var v string
	if err := db.Get(&v, `SELECT value FROM settings WHERE key = 'k'`); err != nil || v != "v" {
		t.Fatalf("data lost across reopen: %q, %v", v, err)
	}
}
