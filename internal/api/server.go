package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lumen-labs/lumen-core/internal/engine"
	"github.com/lumen-labs/lumen-core/internal/history"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/config"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/logging"
	"github.com/lumen-labs/lumen-core/internal/program"
)

// shutdownGrace bounds how long Close waits for in-flight requests
// before the remaining connections are cut.
const shutdownGrace = 10 * time.Second

// HealthChecker reports whether a component is usable. The
// infrastructure clients (database, MQTT, InfluxDB) all satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Engine    *engine.Engine
	Scheduler *program.Scheduler

	// History is optional; without it GET /executions returns an
	// empty list.
	History history.Repository

	// Health lists named component checks surfaced by GET /health.
	Health map[string]HealthChecker

	// Hub, if set, is used instead of a server-created hub. Main wires
	// the same hub into the scheduler's notifier chain so program
	// events reach WebSocket watchers.
	Hub *Hub

	Version string
}

// Server is the HTTP control surface for the lamp: REST endpoints
// for commands, patterns and programs, plus the WebSocket frame
// stream. Create with New, run with Start, stop with Close.
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	engine  *engine.Engine
	sched   *program.Scheduler
	history history.Repository
	health  map[string]HealthChecker
	version string
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc // stops the hub and engine relay on Close
}

// New wires the server but does not listen yet. Logger, engine and
// scheduler are mandatory; everything else degrades gracefully when
// absent.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}

	return &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		engine:  deps.Engine,
		sched:   deps.Scheduler,
		history: deps.History,
		health:  deps.Health,
		hub:     deps.Hub,
		version: deps.Version,
	}, nil
}

// Start brings the control surface up: the WebSocket hub, a
// subscription on the engine's change stream to feed it, and the HTTP
// listener in a background goroutine. Returns once the listener is
// launched; Close stops everything.
func (s *Server) Start(ctx context.Context) error {
	// Close must be able to stop the background goroutines even if the
	// parent context outlives the server.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.logger)
	}
	go s.hub.Run(srvCtx)

	events, unsub := s.engine.Subscribe(engineEventBuffer)
	go s.relayEngineEvents(srvCtx, events, unsub)

	readTimeout := time.Duration(s.cfg.Timeouts.Read) * time.Second
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go s.listen()
	return nil
}

func (s *Server) listen() {
	var err error
	if s.cfg.TLS.Enabled {
		s.logger.Info("api listening with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
		err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		s.logger.Info("api listening", "address", s.server.Addr)
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("api server error", "error", err)
	}
}

// Close drains in-flight requests for up to shutdownGrace, cancelling
// the hub and engine relay first so no new frames queue behind the
// drain.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	s.logger.Info("api shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the listener has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
