package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-controller/internal/history"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// minPruneInterval bounds how often idle change records are swept.
const minPruneInterval = time.Second

// HistoryReader returns recorded sensor history. Satisfied by *history.Repository.
type HistoryReader interface {
	Recent(ctx context.Context, sensorID, limit int) ([]history.Entry, error)
}

// HealthChecker is a dependency reported by the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Polling config.PollingConfig
	Logger  *logging.Logger
	Cache   *statuscache.StatusCache

	// History is optional; without it the history endpoint returns 503.
	History HistoryReader

	// Gatherer is optional; without it /metrics is not mounted.
	Gatherer prometheus.Gatherer

	// Checks are reported by /health under their map key.
	Checks map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for the controller.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	pollCfg   config.PollingConfig
	logger    *logging.Logger
	cache     *statuscache.StatusCache
	history   HistoryReader
	gatherer  prometheus.Gatherer
	checks    map[string]HealthChecker
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("status cache is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		pollCfg:   deps.Polling,
		logger:    deps.Logger,
		cache:     deps.Cache,
		history:   deps.History,
		gatherer:  deps.Gatherer,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.Logger),
	}, nil
}

// Start begins listening for HTTP connections and starts the idle record
// sweeper. The listener runs in a background goroutine; stop it with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.pruneLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// Open status streams are closed first, then in-flight requests get up to
// 10 seconds to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// pruneLoop removes change records nobody has polled for the idle TTL.
// A non-positive TTL disables pruning.
func (s *Server) pruneLoop(ctx context.Context) {
	ttl := s.pollCfg.IdleTTL()
	if ttl <= 0 {
		return
	}

	interval := max(ttl/2, minPruneInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.cache.ChangedStatuses().PruneIdle(ttl); n > 0 {
				s.logger.Debug("pruned idle change records", "count", n)
			}
		}
	}
}
