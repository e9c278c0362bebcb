package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/norahq/nora/internal/storage"
)

// readyTimeout bounds the backend check behind /readyz.
const readyTimeout = 2 * time.Second

// RegisterHealth mounts /healthz (process is up) and /readyz (store reachable).
func RegisterHealth(mux *http.ServeMux, store storage.Store, backend string, logger *slog.Logger) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := storage.Ping(ctx, store); err != nil {
			logger.Warn("readiness check failed", "backend", backend, "error", err)
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unavailable",
				"backend": backend,
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready", "backend": backend})
	})
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
