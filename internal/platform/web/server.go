// Package web serves levels, stored runs and live searches over HTTP. Live
// searches run as hub jobs; their generations are streamed to websocket
// clients as JSON messages.
package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/hub"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/storage"
)

// Options configures a Server.
type Options struct {
	Addr   string
	Levels []levels.Level
	Search config.Config  // base configuration of started jobs
	Store  *storage.Store // optional; run endpoints answer 503 without it
	Hub    *hub.Hub
	Logger *log.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	levels map[string]levels.Level
	router chi.Router
	logger *log.Logger
	http   *http.Server
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		opts:   opts,
		levels: make(map[string]levels.Level, len(opts.Levels)),
		logger: logger,
	}
	for _, l := range opts.Levels {
		s.levels[l.ID] = l
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/levels", func(r chi.Router) {
		r.Get("/", s.handleLevels)
		r.Get("/{id}", s.handleLevel)
		r.Get("/{id}/best", s.handleBestRun)
		r.Get("/{id}/stats", s.handleLevelStats)
	})

	r.Get("/stats", s.handleStats)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleRuns)
		r.Get("/{id}", s.handleRun)
		r.Get("/{id}/replay", s.handleReplay)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.handleJobs)
		r.Post("/", s.handleStartJob)
		r.Get("/{id}", s.handleJob)
		r.Delete("/{id}", s.handleStopJob)
	})

	r.Get("/ws/jobs/{id}", s.handleWatchJob)
	r.Get("/ws/solve/{level}", s.handleSolve)

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", s.opts.Addr, "levels", len(s.levels))
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

	s.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// requestLogger logs each request with charmbracelet/log.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}
