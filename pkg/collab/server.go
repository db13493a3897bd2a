package collab

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkwell-hq/inkwell/pkg/audit"
)

// Server is the HTTP/WebSocket surface of the collaboration core. It
// constructs and owns the component graph for one process lifetime.
type Server struct {
	registry    *Registry
	directory   *Directory
	presence    *Presence
	locks       *LockManager
	router      *Router
	coordinator *Coordinator

	config   *Config
	upgrader websocket.Upgrader

	promRegistry *prometheus.Registry
	metrics      *Metrics

	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with the given configuration. Unset config
// fields are filled with defaults. recorder may be nil to run without
// auditing.
func New(config *Config, recorder audit.Recorder) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.ReadTimeout == 0 {
			config.ReadTimeout = defaults.ReadTimeout
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.HeartbeatInterval == 0 {
			config.HeartbeatInterval = defaults.HeartbeatInterval
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
		if config.ReadHeaderTimeout == 0 {
			config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
		}
		if config.MaxMessageSize == 0 {
			config.MaxMessageSize = defaults.MaxMessageSize
		}
		if config.SendQueueSize == 0 {
			config.SendQueueSize = defaults.SendQueueSize
		}
		if config.ReadBufferSize == 0 {
			config.ReadBufferSize = defaults.ReadBufferSize
		}
		if config.WriteBufferSize == 0 {
			config.WriteBufferSize = defaults.WriteBufferSize
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
	}

	logger := slog.Default().With("component", "server")

	registry := NewRegistry()
	directory := NewDirectory()
	locks := NewLockManager()
	presence := NewPresence(registry, directory)

	promRegistry := prometheus.NewRegistry()
	metrics := NewMetrics(promRegistry, registry, directory, locks)

	router := NewRouter(directory, registry, logger, metrics)
	coordinator := NewCoordinator(registry, directory, presence, locks, router, recorder, logger, metrics)

	return &Server{
		registry:     registry,
		directory:    directory,
		presence:     presence,
		locks:        locks,
		router:       router,
		coordinator:  coordinator,
		config:       config,
		promRegistry: promRegistry,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler for mounting in external routers.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	return r
}

// HandleWebSocket upgrades the connection and starts a session.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	session := newSession(conn, s.config, s.logger)
	s.coordinator.Connect(session)
	session.start(s.coordinator)
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server: disconnect cleanup runs
// for every live session, then the HTTP listener drains.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.registry.ForEach(func(session *Session) bool {
		s.coordinator.Disconnect(session)
		return true
	})

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Registry returns the connection registry.
func (s *Server) Registry() *Registry { return s.registry }

// Directory returns the room directory.
func (s *Server) Directory() *Directory { return s.directory }

// Locks returns the lock manager.
func (s *Server) Locks() *LockManager { return s.locks }

// Presence returns the presence tracker.
func (s *Server) Presence() *Presence { return s.presence }

// Config returns the server configuration.
func (s *Server) Config() *Config { return s.config }

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// SetLogger sets the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}
