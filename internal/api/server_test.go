package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/astrogator/internal/fleet"
	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/roster"
	"github.com/talgya/astrogator/internal/settings"
	"github.com/talgya/astrogator/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	players := roster.NewRegistry(db)
	units := fleet.NewRegistry(db)
	sets := settings.NewStore(db)
	svc := galaxy.NewService(db, players, units, sets, nil)
	return &Server{Svc: svc, Players: players, Units: units, Settings: sets, AdminKey: "secret"}
}

func TestWorldEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id, err := srv.Svc.SaveWorld(galaxy.World{Name: "Altair", X: 1, Y: 2})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/world/"+string(id), nil)
	srv.handleWorldRoutes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		World galaxy.World `json:"world"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.World.Name != "Altair" {
		t.Fatalf("body mismatch: %+v", body)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleWorldRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/world/no-such-id", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown world: status %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.handleTurn(rec, httptest.NewRequest(http.MethodGet, "/api/v1/turn/99", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid turn: status %d, want 400", rec.Code)
	}

	if _, err := srv.Svc.SaveWorld(galaxy.World{Name: "Taken"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := srv.Svc.SaveWorld(galaxy.World{Name: "taken"})
	rec = httptest.NewRecorder()
	writeError(rec, err)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate name: status %d, want 409", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.adminOnly(srv.handleImport)

	csv := "name,x,y,ei,rer,owner,firepower,labour,capital\nVega,0,0,1,1,,0,0,0\n"

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import?turn=1", strings.NewReader(csv)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import?turn=1", strings.NewReader(csv))
	req.Header.Set("Authorization", "Bearer wrong")
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import?turn=1", strings.NewReader(csv))
	req.Header.Set("Authorization", "Bearer secret")
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: status %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := srv.Svc.WorldByName("Vega"); err != nil {
		t.Fatalf("import did not land: %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("limits are per client")
	}
	if rl.RetryAfter("a") <= 0 {
		t.Fatal("limited client should get a positive retry-after")
	}
}
