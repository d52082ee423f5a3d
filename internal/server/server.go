package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
)

const shutdownTimeout = 10 * time.Second

// Server serves the hub over HTTP until its context ends.
type Server struct {
	http *http.Server
}

func New(addr string, hub *signaling.Hub, allowedOrigins []string, history HistoryReader) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(hub, allowedOrigins, history),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting signaling server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("shutting down signaling server")
	return s.http.Shutdown(shutdownCtx)
}
