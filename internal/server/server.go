// Package server exposes a captured session as the backend's paginated
// events endpoint, so the stream accumulator can be exercised offline and
// demos don't need a live assessment run.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/red-council/chainscope/internal/capture"
	"github.com/red-council/chainscope/internal/model"
)

// maxPageLimit caps the limit query parameter.
const maxPageLimit = 1000

// Server serves captured sessions over the events API.
type Server struct {
	router chi.Router
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string][]model.AgentEvent
	sources  map[string]string // session id -> capture path, for reload
}

// New creates a replay server with no sessions loaded.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:   logger,
		sessions: make(map[string][]model.AgentEvent),
		sources:  make(map[string]string),
	}

	r := chi.NewRouter()
	r.Get("/agent/session/{sessionID}/events", s.handleEvents)
	r.Get("/healthz", s.handleHealth)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// LoadCapture loads a capture file as the given session's event log.
func (s *Server) LoadCapture(sessionID, path string) error {
	events, err := capture.ReadAll(path)
	if err != nil {
		return fmt.Errorf("load capture: %w", err)
	}

	s.mu.Lock()
	s.sessions[sessionID] = events
	s.sources[sessionID] = path
	s.mu.Unlock()

	s.logger.Info("capture loaded",
		zap.String("session_id", sessionID),
		zap.String("path", path),
		zap.Int("events", len(events)))
	return nil
}

// Reload re-reads every session's capture file. Sessions whose source fails
// to load keep their previous events.
func (s *Server) Reload() error {
	s.mu.RLock()
	sources := make(map[string]string, len(s.sources))
	for id, path := range s.sources {
		sources[id] = path
	}
	s.mu.RUnlock()

	var firstErr error
	for id, path := range sources {
		if err := s.LoadCapture(id, path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SourcePaths returns the capture files backing loaded sessions.
func (s *Server) SourcePaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.sources))
	for _, path := range s.sources {
		paths = append(paths, path)
	}
	return paths
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s.mu.RLock()
	events, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 200)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = 200
	}

	page := []model.AgentEvent{}
	if offset < len(events) {
		end := offset + limit
		if end > len(events) {
			end = len(events)
		}
		page = events[offset:end]
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"events":      page,
		"total_count": len(events),
	}); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
