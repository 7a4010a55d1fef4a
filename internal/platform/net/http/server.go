package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"ngmeta/internal/platform/logger"
)

// Server is a thin wrapper over a Router and a stdlib http.Server
type Server struct {
	addr   string
	router Router
	srv    *stdhttp.Server
}

// NewServer creates a server listening on addr; an empty addr means ":4000"
func NewServer(addr string, r Router) *Server {
	if addr == "" {
		addr = ":4000"
	}
	if r == nil {
		r = NewRouter()
	}
	return &Server{
		addr:   addr,
		router: r,
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           r.Mux(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router returns the router routes are mounted on
func (s *Server) Router() Router { return s.router }

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run serves until ctx is done, then shuts down within grace
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	log := logger.Named("http")
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("http listening")
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	log.Info().Msg("http shutting down")
	if err := s.srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}
