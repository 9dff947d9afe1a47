package mock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server runs a Backend on a TCP port.
type Server struct {
	config     *Config
	backend    *Backend
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer creates a mock server for config. A nil logger discards.
func NewServer(config *Config, logger *slog.Logger) *Server {
	if config.Port == 0 {
		config.Port = 5002
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		config:  config,
		backend: NewBackend(config),
		logger:  logger,
	}
}

// Start binds the port and serves in the background. Bind errors are
// returned here rather than from the serving goroutine.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.backend.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mock server stopped", "error", err)
		}
	}()

	s.logger.Info("mock server started", "address", s.Address())
	return nil
}

// Stop stops the mock server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Backend() *Backend {
	return s.backend
}

// Address returns the base URL clients should be configured with.
func (s *Server) Address() string {
	host := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	if s.listener != nil {
		host = s.listener.Addr().String()
	}
	return "http://" + host + s.backend.BasePath()
}
