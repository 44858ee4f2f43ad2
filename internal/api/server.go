// Package api provides the HTTP API for observing a running outbreak.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lemonad/outbreak-simulation/internal/contact"
	"github.com/lemonad/outbreak-simulation/internal/engine"
	"github.com/lemonad/outbreak-simulation/internal/epidemic"
	"github.com/lemonad/outbreak-simulation/internal/persistence"
)

// maxTick is the largest tick SQLite can bind; the uint64 high bit does not fit.
const maxTick = uint64(1<<63 - 1)

// Server serves the outbreak state over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; nil serves history from memory
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Snapshots copy the whole population, so they are rate limited.
	SnapshotLimit  int
	SnapshotWindow time.Duration
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	limit, window := s.SnapshotLimit, s.SnapshotWindow
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	snapshotLimiter := NewRateLimiter(limit, window)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/interventions", s.handleInterventions)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/snapshot", RateLimitMiddleware(snapshotLimiter, s.handleSnapshot))
	mux.HandleFunc("GET /api/v1/contacts/{id}", s.handleContacts)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/intervention", s.adminOnly(s.handleIntervention))

	return corsMiddleware(mux)
}

// Start serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "db", s.DB != nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	slog.Info("HTTP API stopped")
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no OUTBREAK_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "outbreak",
		"run_id":  s.RunID,
		"running": s.Eng.Running(),
	}
	s.Eng.View(func(sim *engine.Simulation) {
		susceptible, infected, recovered := sim.Counts()
		status["tick"] = sim.CurrentTick()
		status["seed"] = sim.Seed
		status["population"] = sim.Population()
		status["regions"] = len(sim.Graph.Regions)
		status["edges"] = sim.Graph.EdgeCount()
		status["policy"] = sim.State.String()
		status["distancing_tick"] = sim.DistancingTick
		status["susceptible"] = susceptible
		status["infected"] = infected
		status["recovered"] = recovered
		if rec, ok := sim.Latest(); ok {
			status["cumulative_infected"] = rec.CumulativeInfected
		}
	})
	if s.DB != nil && s.RunID != "" {
		run, err := s.DB.LoadRun(s.RunID)
		if err != nil {
			slog.Error("run query failed", "run_id", s.RunID, "error", err)
		} else {
			status["started_at"] = run.StartedAt
			status["dwell"] = run.Dwell
		}
	}
	writeJSON(w, status)
}

// handleStats returns the per-step history. With a database the from, to and
// limit query parameters select a window of the recorded run.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	fromTick := uint64(0)
	toTick := maxTick
	limit := 1000

	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.ParseUint(f, 10, 64); err == nil {
			fromTick = min(v, maxTick)
		}
	}
	if t := r.URL.Query().Get("to"); t != "" {
		if v, err := strconv.ParseUint(t, 10, 64); err == nil {
			toTick = min(v, maxTick)
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 10000 {
			limit = v
		}
	}

	if s.DB != nil && s.RunID != "" {
		records, err := s.DB.LoadStats(s.RunID, fromTick, toTick, limit)
		if err != nil {
			slog.Error("stats query failed", "run_id", s.RunID, "error", err)
			http.Error(w, "stats unavailable", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []engine.StatsRecord{}
		}
		writeJSON(w, records)
		return
	}

	records := []engine.StatsRecord{}
	s.Eng.View(func(sim *engine.Simulation) {
		for _, rec := range sim.History {
			if rec.Tick < fromTick || rec.Tick > toTick {
				continue
			}
			records = append(records, rec)
			if len(records) == limit {
				break
			}
		}
	})
	writeJSON(w, records)
}

// handleInterventions serves the recorded interventions of this run when a
// database is attached, and the in-memory list otherwise.
func (s *Server) handleInterventions(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil && s.RunID != "" {
		ivs, err := s.DB.LoadInterventions(s.RunID)
		if err != nil {
			slog.Error("interventions query failed", "run_id", s.RunID, "error", err)
			http.Error(w, "interventions unavailable", http.StatusInternalServerError)
			return
		}
		if ivs == nil {
			ivs = []engine.Intervention{}
		}
		writeJSON(w, ivs)
		return
	}

	ivs := []engine.Intervention{}
	s.Eng.View(func(sim *engine.Simulation) {
		ivs = append(ivs, sim.Interventions...)
	})
	writeJSON(w, ivs)
}

// handleRuns lists every run recorded in the database, not only this one.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.ListRuns()
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "runs unavailable", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var (
		snap engine.Snapshot
		err  error
	)
	s.Eng.View(func(sim *engine.Simulation) {
		snap, err = sim.Snapshot()
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid individual id", http.StatusBadRequest)
		return
	}

	var view engine.ContactView
	s.Eng.View(func(sim *engine.Simulation) {
		view, err = sim.Contacts(epidemic.ID(id))
	})
	switch {
	case errors.Is(err, contact.ErrUnknownIndividual):
		http.Error(w, "individual not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string   `json:"type"`
		Rate *float64 `json:"rate,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case engine.KindPhysicalDistancing:
		rate := s.Eng.Distancing.Rate
		if req.Rate != nil {
			rate = *req.Rate
		}

		var iv engine.Intervention
		err := s.Eng.Update(func(sim *engine.Simulation) error {
			var err error
			iv, err = sim.PhysicalDistancing(rate)
			return err
		})
		switch {
		case errors.Is(err, engine.ErrInvalidRate):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, engine.ErrPolicyApplied):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		if s.DB != nil && s.RunID != "" {
			if err := s.DB.RecordIntervention(s.RunID, iv); err != nil {
				slog.Error("intervention record failed", "run_id", s.RunID, "error", err)
			}
		}
		writeJSON(w, map[string]any{"success": true, "intervention": iv})

	default:
		http.Error(w, fmt.Sprintf("unknown intervention type %q", req.Type), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
