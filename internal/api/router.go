package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the component probes behind GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
//
// The routes live at the root rather than under a versioned prefix:
// the lamp speaks one small, stable wire contract and its existing
// clients address it bare.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Direct lamp commands
	r.Post("/led/{id}", s.handleSetLed)
	r.Post("/leds", s.handleSetLeds)
	r.Post("/gradient", s.handleGradient)
	r.Post("/pattern", s.handlePattern)
	r.Post("/render", s.handleRender)
	r.Post("/stop", s.handleStop)

	// Program lifecycle
	r.Route("/program", func(r chi.Router) {
		r.Post("/", s.handleStartProgram)
		r.Post("/pause", s.handlePauseProgram)
		r.Post("/resume", s.handleResumeProgram)
		r.Post("/cancel", s.handleCancelProgram)
		r.Get("/status", s.handleProgramStatus)
	})

	// Observation
	r.Get("/state", s.handleState)
	r.Get("/executions", s.handleListExecutions)
	r.Get("/health", s.handleHealth)

	// WebSocket state stream
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns liveness plus per-component status. The lamp
// stays "ok" only while the engine answers and every registered
// component check passes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(s.health)+1)

	if _, err := s.engine.View(ctx); err != nil {
		components["engine"] = err.Error()
		status = "degraded"
	} else {
		components["engine"] = "ok"
	}

	for name, check := range s.health {
		if err := check.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
		} else {
			components[name] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"program":    s.sched.Status().Status,
		"components": components,
	})
}
