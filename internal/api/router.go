// Package api exposes configured table mappers over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablemapper/pkg/mapper"
)

// Deps holds everything the router needs.
type Deps struct {
	// Mappers by table name; only these tables are reachable.
	Mappers map[string]*mapper.TableMapper

	// Ping checks the database for /readyz. Optional.
	Ping func(ctx context.Context) error

	// Gatherer serves MetricsPath when set.
	Gatherer    prometheus.Gatherer
	MetricsPath string

	// Logger for access and error lines; the global zerolog logger when nil.
	Logger *zerolog.Logger
}

// NewRouter wires all dependencies and returns the chi router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	logger := log.Logger
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	r.Use(middleware.RequestID)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(deps.Ping))

	if deps.Gatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	h := &tablesHandler{mappers: deps.Mappers}

	r.Get("/api/tables", h.List)
	r.Route("/api/tables/{table}", func(r chi.Router) {
		r.Use(h.resolveTable)
		r.Get("/schema", h.Schema)
		r.Get("/rows", h.Select)
		r.Post("/rows", h.Insert)
		r.Get("/rows/{id}", h.Get)
		r.Put("/rows/{id}", h.Update)
		r.Delete("/rows/{id}", h.Delete)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings the database to confirm the service is ready.
func handleReadyz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"database": "ok"}
		status := http.StatusOK

		if ping != nil {
			if err := ping(r.Context()); err != nil {
				checks["database"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, checks)
	}
}
