package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/smartlock-bridge/internal/channel"
	"github.com/nerrad567/smartlock-bridge/internal/eventlog"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandSubmitter validates and forwards lock commands.
type CommandSubmitter interface {
	Submit(ctx context.Context, secret, action string) error
}

// LogQuerier reads the event logs.
type LogQuerier interface {
	LatestHeartbeat(ctx context.Context) (*eventlog.Record, error)
	AllStates(ctx context.Context) ([]eventlog.Record, error)
}

// HealthChecker is implemented by the database wrapper.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ChannelStatus reports the device channel connection state.
type ChannelStatus interface {
	State() channel.ConnectionState
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Commands CommandSubmitter
	Queries  LogQuerier
	Database HealthChecker // optional, reported by /health
	Channel  ChannelStatus // optional, reported by /health
	Metrics  *metrics.Metrics
	Hub      *Hub // If set, the server uses this hub instead of creating its own
	Version  string
}

// Server is the HTTP API server for the smart lock bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	commands    CommandSubmitter
	queries     LogQuerier
	database    HealthChecker
	channel     ChannelStatus
	metrics     *metrics.Metrics
	version     string
	server      *http.Server
	listener    net.Listener
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command gateway is required")
	}
	if deps.Queries == nil {
		return nil, fmt.Errorf("query service is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		commands: deps.Commands,
		queries:  deps.Queries,
		database: deps.Database,
		channel:  deps.Channel,
		metrics:  deps.Metrics,
		version:  deps.Version,
	}

	// An injected hub is shared with the ingestor, which feeds it records.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
		s.hub.SetMetrics(deps.Metrics)
	}

	return s, nil
}

// Hub returns the WebSocket hub so callers can register it as a record observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired router. Useful for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listen address and serves HTTP in a background goroutine.
//
// The listener is bound synchronously so a port conflict is reported here
// rather than lost in the serving goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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

// HealthCheck verifies the API server is running and responsive.
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
