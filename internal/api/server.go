// Package api serves the world/history view over HTTP for the desktop UI.
// GET endpoints are public read-only queries; POST endpoints (imports,
// settings, deletions) require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/astrogator/internal/fleet"
	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/importer"
	"github.com/talgya/astrogator/internal/roster"
	"github.com/talgya/astrogator/internal/settings"
)

// Server serves the engine's data over HTTP.
type Server struct {
	Svc      *galaxy.Service
	Players  *roster.Registry
	Units    *fleet.Registry
	Settings *settings.Store
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	importLimiter := NewRateLimiter(30, time.Hour)

	mux := http.NewServeMux()

	// Public read endpoints.
	mux.HandleFunc("/api/v1/worlds", s.handleWorlds)
	mux.HandleFunc("/api/v1/world/", s.handleWorldRoutes)
	mux.HandleFunc("/api/v1/turn/", s.handleTurn)
	mux.HandleFunc("/api/v1/mapinfo", s.handleMapInfo)
	mux.HandleFunc("/api/v1/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/worlds-summary", s.handleWorldsSummary)
	mux.HandleFunc("/api/v1/players", s.handlePlayers)
	mux.HandleFunc("/api/v1/units", s.handleUnits)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/import", s.adminOnly(rateLimited(importLimiter, s.handleImport)))
	mux.HandleFunc("/api/v1/settings", s.adminOnly(s.handleSettings))

	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps engine error kinds onto HTTP statuses so the UI can show
// a friendly dialog instead of a raw failure.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case galaxy.IsInvalidTurn(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case galaxy.IsDuplicateName(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, galaxy.ErrWorldNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth on POST requests. GET requests pass
// through for endpoints that support both.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleWorlds(w http.ResponseWriter, r *http.Request) {
	worlds, err := s.Svc.Worlds()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, worlds)
}

// handleWorldRoutes dispatches /api/v1/world/:id and /api/v1/world/:id/delete.
func (s *Server) handleWorldRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing world id", http.StatusBadRequest)
		return
	}
	id := galaxy.WorldID(parts[4])

	if len(parts) >= 6 && parts[5] == "delete" {
		s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
			s.handleWorldDelete(w, r, id)
		})(w, r)
		return
	}

	world, err := s.Svc.WorldByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := s.Svc.WorldHistory(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"world":   world,
		"history": history,
	})
}

func (s *Server) handleWorldDelete(w http.ResponseWriter, r *http.Request, id galaxy.WorldID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Svc.DeleteWorld(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"deleted": string(id)})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 {
		http.Error(w, "missing turn", http.StatusBadRequest)
		return
	}
	turn, err := strconv.Atoi(parts[4])
	if err != nil {
		http.Error(w, "invalid turn", http.StatusBadRequest)
		return
	}
	snaps, err := s.Svc.SnapshotsAt(turn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snaps)
}

func (s *Server) handleMapInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.Svc.MapInfo()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	turn, err := strconv.Atoi(r.URL.Query().Get("turn"))
	if err != nil {
		http.Error(w, "invalid turn", http.StatusBadRequest)
		return
	}
	sum, err := s.Svc.OwnerSummary(owner, turn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sum)
}

func (s *Server) handleWorldsSummary(w http.ResponseWriter, r *http.Request) {
	turn, err := strconv.Atoi(r.URL.Query().Get("turn"))
	if err != nil {
		http.Error(w, "invalid turn", http.StatusBadRequest)
		return
	}
	rows, err := s.Svc.TurnSummary(turn)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []galaxy.SummaryRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.Players.Players()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, players)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.Units.Units()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, units)
}

// handleImport ingests a turn snapshot CSV: POST /api/v1/import?turn=N with
// the file as the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	turn, err := strconv.Atoi(r.URL.Query().Get("turn"))
	if err != nil {
		http.Error(w, "invalid turn", http.StatusBadRequest)
		return
	}
	stats, err := importer.ImportTurn(s.Svc, turn, r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	if err := s.Settings.Set(req.Key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{req.Key: req.Value})
}
