package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rickgao/ratel-client/internal/connection"
	"github.com/rickgao/ratel-client/internal/session"
	"github.com/rickgao/ratel-client/internal/version"
)

// newStatusRouter serves connection health and debug views.
func newStatusRouter(m connection.Manager, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := m.Stats()
		health := struct {
			Status  string                  `json:"status"`
			Version string                  `json:"version"`
			Conn    connection.ManagerStats `json:"connection"`
		}{
			Status:  "healthy",
			Version: version.Version,
			Conn:    stats,
		}

		code := http.StatusOK
		switch m.State() {
		case connection.StateOpen:
		case connection.StateConnecting, connection.StateReconnecting:
			health.Status = "degraded"
		default:
			health.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health, logger)
	})

	r.Get("/debug/session", func(w http.ResponseWriter, r *http.Request) {
		s := m.Session()
		body := struct {
			session.Record
			Interactive bool `json:"interactive"`
		}{
			Record:      session.NewRecord(s, time.Now()),
			Interactive: s.Interactive,
		}
		writeJSON(w, http.StatusOK, body, logger)
	})

	r.Get("/debug/queue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.Stats().Queue, logger)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write status response", "error", err)
	}
}
