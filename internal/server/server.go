// Package server provides the HTTP API of the recalld service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/medivault/recall"
	"github.com/medivault/recall/embedding"
	"github.com/medivault/recall/internal/config"
	"github.com/medivault/recall/metadata"
)

// Index is the subset of the vector index manager the server uses.
type Index interface {
	Add(ctx context.Context, collection recall.Collection, vectors [][]float32, records []metadata.Record) ([]uint64, error)
	Search(ctx context.Context, query []float32, k int, scope recall.SearchScope, owner string) (*recall.SearchResults, error)
	Persist(ctx context.Context, collection recall.Collection) error
	Stats() recall.Stats
}

var _ Index = (*recall.Manager)(nil)

// Server is the HTTP server for the recall API.
type Server struct {
	index    Index
	embedder embedding.Embedder
	cfg      config.ServerConfig
	logger   *zap.Logger
	stale    func() bool
	server   *http.Server
}

// NewServer creates a server with the given dependencies. stale reports
// whether the on-disk artifacts have drifted from the loaded state; nil means
// never stale.
func NewServer(index Index, embedder embedding.Embedder, cfg config.ServerConfig, logger *zap.Logger, stale func() bool) *Server {
	if stale == nil {
		stale = func() bool { return false }
	}
	return &Server{
		index:    index,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
		stale:    stale,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(s.cfg.RequestTimeoutSecs) * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Post("/search", s.handleSearch)
	r.Post("/add-vectors", s.handleAddVectors)
	r.Post("/rebuild-index", s.handleRebuildIndex)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", s.cfg.Addr()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs one line per request through the injected zap logger.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
