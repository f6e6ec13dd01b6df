// Package api provides the HTTP ingestion surface for ganalytics.
//
// Host applications report views and events with small JSON POSTs; the
// emitter absorbs all downstream network state, so these endpoints answer
// success as soon as the event is accepted for transmission.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Moqi/ganalytics/internal/analytics"
)

// DefaultAddr is the default listen address for the ingestion API.
const DefaultAddr = ":8092"

// Server exposes the telemetry surface over HTTP.
type Server struct {
	svc  *analytics.Service
	addr string
}

// NewServer creates a Server for the given service. An empty addr uses
// DefaultAddr.
func NewServer(svc *analytics.Service, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{svc: svc, addr: addr}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/track/view", s.trackViewHandler)
	mux.HandleFunc("/track/event", s.trackEventHandler)
	mux.HandleFunc("/purge", s.purgeHandler)
	mux.HandleFunc("/status", s.statusHandler)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: ingestion API listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Server.Run: shutting down ingestion API")
		return srv.Shutdown(shutdownCtx)
	}
}
