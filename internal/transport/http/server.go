package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"loyalty/internal/service"
	"loyalty/internal/transport/websocket"
)

type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP API. hub may be nil, in which case /ws is not mounted.
func NewServer(addr string, svc service.RewardsService, hub *websocket.Hub) *Server {
	return &Server{
		srv: &http.Server{
			Addr:        addr,
			Handler:     NewRouter(svc, hub),
			ReadTimeout: 5 * time.Second,
			// No WriteTimeout: /ws connections are long-lived.
			IdleTimeout: 120 * time.Second,
		},
	}
}

func NewRouter(svc service.RewardsService, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	NewHandler(svc, hub).Routes(r)
	return r
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("HTTP API listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
