package settings

import (
	"path/filepath"
	"testing"

	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestGetSet(t *testing.T) {
	s := newStore(t)

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("unset key: ok=%v err=%v, want ok=false", ok, err)
	}
	if err := s.Set("ui.theme", "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.Get("ui.theme")
	if err != nil || !ok || v != "dark" {
		t.Fatalf("get = (%q, %v, %v)", v, ok, err)
	}

	// Set again replaces, not duplicates.
	if err := s.Set("ui.theme", "light"); err != nil {
		t.Fatalf("re-set: %v", err)
	}
	v, _, _ = s.Get("ui.theme")
	if v != "light" {
		t.Fatalf("upsert not applied: %q", v)
	}
}

func TestGetIntFallback(t *testing.T) {
	s := newStore(t)

	if n, err := s.GetInt("missing", 42); err != nil || n != 42 {
		t.Fatalf("unset key: (%d, %v), want (42, nil)", n, err)
	}
	s.Set("bad", "not a number")
	if n, err := s.GetInt("bad", 7); err != nil || n != 7 {
		t.Fatalf("unparseable key: (%d, %v), want (7, nil)", n, err)
	}
	s.SetInt("good", 250)
	if n, err := s.GetInt("good", 7); err != nil || n != 250 {
		t.Fatalf("set key: (%d, %v), want (250, nil)", n, err)
	}
}

func TestDefaultScanRange(t *testing.T) {
	s := newStore(t)

	n, err := s.DefaultScanRange()
	if err != nil || n != galaxy.FallbackScanRange {
		t.Fatalf("unset default = (%d, %v), want fallback %d", n, err, galaxy.FallbackScanRange)
	}
	s.SetInt(galaxy.SettingDefaultScanRange, 175)
	n, err = s.DefaultScanRange()
	if err != nil || n != 175 {
		t.Fatalf("configured default = (%d, %v), want 175", n, err)
	}
}

func TestSubscribeCarriesKey(t *testing.T) {
	s := newStore(t)

	var keys []string
	token := s.Subscribe(func(key string) { keys = append(keys, key) })

	s.Set("a", "1")
	s.Set("b", "2")
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("notifications: %v", keys)
	}

	s.Unsubscribe(token)
	s.Set("c", "3")
	if len(keys) != 2 {
		t.Fatal("listener fired after unsubscribe")
	}
}
