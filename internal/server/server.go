// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the knowledge graph over HTTP: paper listing
// and search, measurement listings with range filters, aggregate
// statistics, and the natural-language query endpoint. Handlers execute
// SPARQL against the triple store and reshape the bindings into JSON.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/plasma-kg/internal/query"
	"github.com/pdiddy/plasma-kg/internal/sparql"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

// shutdownGrace bounds how long in-flight requests may run after the
// server's context is cancelled.
const shutdownGrace = 5 * time.Second

// QueryExecutor is the triple-store subset the handlers use.
// sparql.Client satisfies it.
type QueryExecutor interface {
	Query(ctx context.Context, query string) ([]sparql.Row, error)
	Count(ctx context.Context, query string) (int, error)
	Ping(ctx context.Context) error
}

// Interpreter parses natural-language questions into structured
// queries. query.Interpreter satisfies it.
type Interpreter interface {
	Interpret(ctx context.Context, question string) (types.ParsedQuery, error)
}

// Server holds the API's dependencies. Create with New.
type Server struct {
	cfg     types.ServerConfig
	store   QueryExecutor
	interp  Interpreter
	builder query.Builder
	cache   *responseCache
	log     *zap.SugaredLogger

	// Version is reported by the health endpoint. Defaults to "dev";
	// the CLI overwrites it with the build version.
	Version string
}

// New builds a Server, filling config defaults. A nil logger discards
// logs.
func New(cfg types.ServerConfig, store QueryExecutor, interp Interpreter, log *zap.SugaredLogger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 100
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.MaxMeasurementPageSize <= 0 {
		cfg.MaxMeasurementPageSize = 1000
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		interp:  interp,
		log:     log,
		Version: "dev",
	}
	if cfg.CacheEnabled {
		s.cache = newResponseCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	}
	return s
}

// Handler returns the routed and middleware-wrapped handler. Exposed so
// tests can drive the API through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /papers", s.cached("papers", s.handlePapers))
	mux.HandleFunc("GET /papers/search", s.cached("search", s.handleSearch))
	mux.HandleFunc("GET /papers/{id}", s.cached("paper", s.handlePaper))
	mux.HandleFunc("GET /temperatures", s.cached("temperatures", s.handleTemperatures))
	mux.HandleFunc("GET /temperatures/statistics", s.cached("temperature_stats", s.handleTemperatureStatistics))
	mux.HandleFunc("GET /densities", s.cached("densities", s.handleDensities))
	mux.HandleFunc("GET /densities/statistics", s.cached("density_stats", s.handleDensityStatistics))
	mux.HandleFunc("GET /statistics", s.cached("statistics", s.handleStatistics))
	mux.HandleFunc("POST /query/natural-language", s.handleNaturalLanguage)

	return s.allowCORS(s.logRequests(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Infow("server listening", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Infow("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) allowCORS(next http.Handler) http.Handler {
	origin := "*"
	if len(s.cfg.CORSOrigins) > 0 {
		origin = strings.Join(s.cfg.CORSOrigins, ", ")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
