// Package api provides the HTTP API for observing a match.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/engine"
	"github.com/talgya/settlersim/internal/persistence"
	"github.com/talgya/settlersim/internal/transport/ws"
	"github.com/talgya/settlersim/internal/world"
)

// Server serves the match state over HTTP.
type Server struct {
	Match    *engine.Match
	Eng      *engine.Engine
	Journal  *persistence.Journal // optional; events fall back to the bus history
	Hub      *ws.Hub              // optional; streaming disabled when nil
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// EventsLimiter throttles journal queries. Nil uses the default.
	EventsLimiter *RateLimiter
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	limiter := s.EventsLimiter
	if limiter == nil {
		limiter = NewRateLimiter(120, time.Minute)
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/players", s.handlePlayers)
	mux.HandleFunc("/api/v1/player/", s.handlePlayerDetail)
	mux.HandleFunc("/api/v1/standings", s.handleStandings)
	mux.HandleFunc("/api/v1/buildings", s.handleBuildings)
	mux.HandleFunc("/api/v1/market", s.handleMarket)
	mux.HandleFunc("/api/v1/board", s.handleBoard)
	mux.HandleFunc("/api/v1/events", RateLimitMiddleware(limiter, s.handleEvents))

	// Websocket event stream.
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "journal", s.Journal != nil)

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
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

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no SETTLERSIM_ADMIN_KEY set)", http.StatusForbidden)
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

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		engine.MatchStatus
		Name    string  `json:"name"`
		Speed   float64 `json:"speed"`
		Running bool    `json:"running"`
	}{
		MatchStatus: s.Match.Status(),
		Name:        "settlersim",
		Speed:       s.Eng.Speed(),
		Running:     s.Eng.Running(),
	})
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	players := s.Match.Players()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := players[:0]
		for _, p := range players {
			if strings.EqualFold(p.Kind.String(), kind) {
				filtered = append(filtered, p)
			}
		}
		players = filtered
	}
	writeJSON(w, players)
}

func (s *Server) handlePlayerDetail(w http.ResponseWriter, r *http.Request) {
	id := world.PlayerID(strings.TrimPrefix(r.URL.Path, "/api/v1/player/"))
	if id == "" {
		http.Error(w, "player id required", http.StatusBadRequest)
		return
	}

	var found *engine.PlayerView
	for _, p := range s.Match.Players() {
		if p.ID == id {
			found = &p
			break
		}
	}
	if found == nil {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}

	buildings, constructions := s.Match.BuildingList()
	owned := make([]world.Building, 0)
	for _, b := range buildings {
		if b.OwnerID == id {
			owned = append(owned, b)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	pending := make([]engine.Construction, 0)
	for _, c := range constructions {
		if c.Owner == id {
			pending = append(pending, c)
		}
	}
	offers := make([]economy.Offer, 0)
	for _, o := range s.Match.Offers() {
		if o.PosterID == id {
			offers = append(offers, o)
		}
	}

	writeJSON(w, map[string]any{
		"player":        found,
		"buildings":     owned,
		"constructions": pending,
		"offers":        offers,
	})
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Match.Standings())
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, constructions := s.Match.BuildingList()
	if t := r.URL.Query().Get("type"); t != "" {
		filtered := buildings[:0]
		for _, b := range buildings {
			if strings.EqualFold(b.Type.String(), t) {
				filtered = append(filtered, b)
			}
		}
		buildings = filtered
	}
	sort.Slice(buildings, func(i, j int) bool { return buildings[i].ID < buildings[j].ID })
	writeJSON(w, map[string]any{
		"buildings":     buildings,
		"constructions": constructions,
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	st := s.Match.Status()
	writeJSON(w, map[string]any{
		"offers": s.Match.Offers(),
		"escrow": st.Escrow,
	})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Match.BoardLayout())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	if s.Journal != nil {
		events, err := s.Journal.RecentEvents(limit, category)
		if err != nil {
			slog.Error("journal query failed", "error", err)
			http.Error(w, "journal unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, events)
		return
	}

	// Newest first, matching the journal.
	recent := s.Match.Bus.Recent(0)
	events := make([]engine.Event, 0, limit)
	for i := len(recent) - 1; i >= 0 && len(events) < limit; i-- {
		if category == "" || recent[i].Category == category {
			events = append(events, recent[i])
		}
	}
	writeJSON(w, events)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	s.Hub.Handler()(w, r)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if s.Journal == nil {
		http.Error(w, "no journal configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.Journal.SaveMatch(s.Match); err != nil {
		slog.Error("snapshot failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	st := s.Match.Status()
	writeJSON(w, map[string]any{"saved": true, "tick": st.Tick})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
