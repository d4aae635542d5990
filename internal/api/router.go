// Package api wires the HTTP surface: the websocket upgrade endpoint and
// a health check.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// WSHandler is satisfied by *transport.Hub; kept as an interface so the
// router package does not import transport (and so tests can stub it).
type WSHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// RouterConfig is the dependency-injection surface for NewRouter, keeping
// the router constructible (and testable with httptest.NewServer) without
// spinning up the real hub.
type RouterConfig struct {
	WS WSHandler

	// DisableLogging skips the request logger middleware (useful for
	// benchmarks and quiet test output).
	DisableLogging bool
}

// NewRouter constructs the HTTP router. It has no side effects: no
// goroutines started, no listeners opened.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/health", handleHealth)
	r.Get("/ws", cfg.WS.ServeHTTP)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
