package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pourline/pourline/internal/bootstrap"
)

const shutdownTimeout = 10 * time.Second

// Server serves the HTTP API for one runtime.
type Server struct {
	rt       *bootstrap.Runtime
	registry *Registry
	http     *http.Server
}

// NewServer wires the router for rt and listens on addr.
func NewServer(rt *bootstrap.Runtime, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	registry := NewRegistry()
	router := NewRouter(NewHandlers(rt, registry), gin.WrapH(rt.Metrics.Handler()))
	return &Server{
		rt:       rt,
		registry: registry,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then shuts down and waits for pending
// credit cancellations.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.rt.Logger.Info("http api listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.rt.Logger.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.rt.Canceller.Wait()
	return err
}
