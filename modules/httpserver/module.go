// Package httpserver provides an HTTP server module built on a chi router.
//
// Handlers are mounted on the router while the module graph is built; the
// server starts listening when the application starts and shuts down
// gracefully when it closes.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/majordome-go/majordome"
)

// ModuleName is the name of this module
const ModuleName = "httpserver"

// Server is an HTTP server with its router.
type Server struct {
	config Config
	router *chi.Mux
	server *http.Server
	logger majordome.Logger

	mu       sync.Mutex
	listener net.Listener
}

// Module builds servers. Instances are shared per resolved Config.
var Module = &majordome.Definition[*Server, Config]{
	Name:    ModuleName,
	Version: "1.0.0",
	Configure: func(ctx context.Context, b *majordome.Builder, opts majordome.InitOptions) (Config, error) {
		if cfg, ok := majordome.OptionConfig[Config](opts); ok {
			return cfg, nil
		}
		return loadConfig(b.Getter(opts, ModuleName)), nil
	},
	Construct: func(ctx context.Context, b *majordome.Builder, cfg Config) (*Server, error) {
		return New(cfg, b.Logger()), nil
	},
}

// Default is the server configured from the HTTPSERVER_* keys.
var Default = majordome.Declare(ModuleName, Module)

// New creates a server outside of an application.
func New(cfg Config, logger majordome.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverer(logger))

	return &Server{
		config: cfg,
		router: r,
		logger: logger,
		server: &http.Server{
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Router returns the router handlers are mounted on.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the bound address once the server is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listen address and serves in a task.
func (s *Server) Start(ctx context.Context, app *majordome.App) ([]*majordome.Task, error) {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", "address", ln.Addr().String(), "tls", s.config.tls())
	return []*majordome.Task{majordome.Go(ctx, "serve", func(ctx context.Context) error {
		var err error
		if s.config.tls() {
			err = s.server.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})}, nil
}

// Stop shuts the server down gracefully within the shutdown timeout.
func (s *Server) Stop(ctx context.Context, app *majordome.App) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	s.logger.Info("Stopping HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	return nil
}
