package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cupgame-server/game/config"
	"cupgame-server/game/session"
	"cupgame-server/server"
	"cupgame-server/transport/websocket"
)

// Server exposes the game over HTTP: read-only observation endpoints, a
// reset operation, and the WebSocket play endpoint.
type Server struct {
	srv     *server.Server
	store   *session.Store
	manager *config.Manager
	router  *mux.Router
}

// NewServer creates an API server around a running game server
func NewServer(srv *server.Server, store *session.Store, manager *config.Manager) *Server {
	s := &Server{
		srv:     srv,
		store:   store,
		manager: manager,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Observation
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// Operations
	api.HandleFunc("/reset", s.handleReset).Methods("POST")

	// WebSocket play endpoint
	s.router.Handle("/ws", websocket.NewEndpoint(s.srv))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.SnapshotFor(0)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config":      snapshot.ConfigName,
		"phase":       snapshot.Phase,
		"players":     len(snapshot.Players),
		"connections": s.srv.Registry().Count(),
		"turn":        snapshot.Turn,
		"moves":       len(snapshot.Moves),
	})
}

// handleState serves the spectator view. Viewer 0 never holds the hider
// role, so the snapshot is always redacted.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.SnapshotFor(0))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	moves := s.store.SnapshotFor(0).Moves

	limit := len(moves)
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if l < limit {
			limit = l
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(moves),
		"count": limit,
		"moves": moves[len(moves)-limit:],
	})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.manager.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if configs == nil {
		configs = []*config.Info{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(configs),
		"configs": configs,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	cfg, err := s.manager.Load(name)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	outcome := s.srv.ResetGame()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": outcome.Text,
		"state":   s.store.SnapshotFor(0),
	})
}
