package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sampurna/itsupport/internal/config"
)

type Server struct {
	httpServer *http.Server
}

// New builds the HTTP server. WriteTimeout comes from config and must stay
// above the chat client's 60s deadline since /ask waits on the model.
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 75 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests.
// onShutdown hooks run after the listener stops, in order.
func (s *Server) Start(onShutdown ...func(context.Context)) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig)
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	for _, fn := range onShutdown {
		fn(ctx)
	}

	slog.Info("server stopped gracefully")
	return nil
}
