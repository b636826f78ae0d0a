// Package server exposes the résumé matching service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/tobin4900/ai-resume-matcher/internal/ai"
	"github.com/tobin4900/ai-resume-matcher/internal/resume"
)

const (
	DefaultListen      = ":8000"
	DefaultMaxUploadMB = 10

	MatchPath = "/match_resume"

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Config holds the HTTP service settings.
type Config struct {
	Listen         string
	MaxUploadMB    int64
	AllowedOrigins []string
	// RateLimitPerMin caps match requests per client IP. Zero disables it.
	RateLimitPerMin int
}

type Server struct {
	cfg      Config
	analyzer ai.Analyzer
	extract  func([]byte) (*resume.Document, error)
	logger   *zap.Logger
}

func New(cfg Config, analyzer ai.Analyzer, logger *zap.Logger) *Server {
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultMaxUploadMB
	}
	cfg.AllowedOrigins = ParseOrigins(cfg.AllowedOrigins)

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		cfg:      cfg,
		analyzer: analyzer,
		extract:  resume.Extract,
		logger:   logger,
	}
}

// ParseOrigins trims the configured origins. An empty list allows all origins.
func ParseOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// Router builds the HTTP handler with middlewares and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/", s.rootHandler())
	r.Group(func(wr chi.Router) {
		if s.cfg.RateLimitPerMin > 0 {
			wr.Use(httprate.LimitByIP(s.cfg.RateLimitPerMin, time.Minute))
		}
		wr.Post(MatchPath, s.matchHandler())
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
