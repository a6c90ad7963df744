// Package rest exposes the handful of read-only commands
// (getFullSnapshot, getWorkerQueueStatus) over plain HTTP GET, for
// tooling that cannot or should not hold a websocket open.
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/archipelago-tracker/core/internal/proxy"
)

// Server is a thin net/http wrapper around a Proxy. It never mutates
// state: every route here maps to a read-only command.
type Server struct {
	proxy  *proxy.Proxy
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer builds a Server with its routes registered.
func NewServer(p *proxy.Proxy, logger *slog.Logger) *Server {
	s := &Server{proxy: p, mux: http.NewServeMux(), logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/v1/queue", s.handleQueueStatus)
	s.mux.HandleFunc("GET /api/v1/ready", s.handleReady)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("request received", "method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, stale := s.proxy.GetSnapshot()
	if snap == nil {
		http.Error(w, "no snapshot yet, loadRules has not completed", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("X-Potential-Stale", boolHeader(stale))
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("failed to encode snapshot", "error", err)
	}
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.proxy.Send("getWorkerQueueStatus", nil, 2*time.Second)
	if err != nil {
		s.logger.Error("failed to fetch queue status", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("failed to encode queue status", "error", err)
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.proxy.EnsureReady(0)
	if err := json.NewEncoder(w).Encode(map[string]bool{"ready": ready}); err != nil {
		s.logger.Error("failed to encode readiness", "error", err)
	}
}

func boolHeader(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
