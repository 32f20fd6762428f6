package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// healthCheckTimeout bounds the dependency checks run by /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/rest", func(r chi.Router) {
		r.Get("/status/{ids}", s.handleStatuses)
		r.Get("/sensors/{name}/status", s.handleSensorStatus)
		r.Get("/history/{id}", s.handleHistory)
		r.Get("/polling/{panel}/{ids}", s.handlePoll)
		r.Get("/ws/{panel}/{ids}", s.handleStream)
	})

	return r
}

// handleHealth reports cache state and the result of every dependency check.
// Any failing check, or a cache that is not running, returns 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	state := s.cache.State()
	healthy := state == statuscache.StateStarted

	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"cache":          state.String(),
		"sensors":        s.cache.SensorCount(),
		"change_records": s.cache.ChangedStatuses().Len(),
		"streams":        s.hub.ClientCount(),
		"checks":         checks,
	})
}
