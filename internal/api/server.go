// Package api provides the HTTP REST API and WebSocket endpoint for the
// HomeLink hub.
//
// It exposes pairing, client administration, area management, and the
// real-time event stream to administrator consoles and paired clients.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/homelink-core/internal/area"
	"github.com/nerrad567/homelink-core/internal/identity"
	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/pairing"
	"github.com/nerrad567/homelink-core/internal/realtime"
	"github.com/nerrad567/homelink-core/internal/token"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// RequestRecorder receives per-request telemetry. Nil disables it.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Pairing    *pairing.Manager
	Clients    pairing.ClientRepository
	Tokens     pairing.TokenRepository
	Areas      area.Repository
	Resolver   *identity.Resolver
	TokenSvc   *token.Service
	Registry   *realtime.Registry
	Dispatcher *realtime.Dispatcher
	Telemetry  RequestRecorder // optional
	Version    string
}

// Server is the HTTP API server for the HomeLink hub.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	pairing    *pairing.Manager
	clients    pairing.ClientRepository
	tokens     pairing.TokenRepository
	areas      area.Repository
	resolver   *identity.Resolver
	tokenSvc   *token.Service
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	telemetry  RequestRecorder
	version    string
	server     *http.Server
	cancel     context.CancelFunc
}

// New creates a new API server with the given dependencies. The server
// is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Pairing == nil {
		return nil, fmt.Errorf("pairing manager is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if deps.Dispatcher == nil || deps.Registry == nil {
		return nil, fmt.Errorf("realtime registry and dispatcher are required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		pairing:    deps.Pairing,
		clients:    deps.Clients,
		tokens:     deps.Tokens,
		areas:      deps.Areas,
		resolver:   deps.Resolver,
		tokenSvc:   deps.TokenSvc,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		telemetry:  deps.Telemetry,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go func() {
		<-srvCtx.Done()
		s.registry.CloseAll()
	}()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadDuration(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadDuration(),
		WriteTimeout:      s.cfg.Timeouts.WriteDuration(),
		IdleTimeout:       s.cfg.Timeouts.IdleDuration(),
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

// Close gracefully shuts down the API server, waiting for in-flight
// requests before closing remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

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

// handleHealth reports hub liveness and connection counts.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"connections": s.registry.Count(),
	})
}
