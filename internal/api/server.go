// Package api serves the fosse catalog over HTTP: read access to videos,
// notebooks, resolved configuration and dimension tables, full-text search,
// and a trigger for background scans.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fosse-media/fosse/internal/metrics"
	"github.com/fosse-media/fosse/internal/ratelimit"
	"github.com/fosse-media/fosse/internal/scanner"
	"github.com/fosse-media/fosse/internal/search"
	"github.com/fosse-media/fosse/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Deps are the collaborators a Server reads from. Search and Metrics may be
// nil when those features are disabled.
type Deps struct {
	Catalog store.Catalog
	Scanner *scanner.Scanner
	Search  *search.Index
	Metrics *metrics.Metrics
	// Root is the tree scanned by POST /api/v1/scans.
	Root           string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog store.Catalog
	scanner *scanner.Scanner
	search  *search.Index
	metrics *metrics.Metrics
	root    string

	router chi.Router
	api    huma.API
	logger *slog.Logger

	// scanCtx outlives requests; background scans are canceled by Close.
	scanCtx     context.Context
	cancelScan  context.CancelFunc
	scanLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("fosse API", Version)
	humaConfig.Info.Description = "Read access to the fosse video catalog."
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	scanCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		catalog:     d.Catalog,
		scanner:     d.Scanner,
		search:      d.Search,
		metrics:     d.Metrics,
		root:        d.Root,
		router:      router,
		api:         api,
		logger:      logger,
		scanCtx:     scanCtx,
		cancelScan:  cancel,
		scanLimiter: ratelimit.New(scanRequestInterval, scanRequestBurst),
	}

	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler())
	}

	s.registerHealthRoutes()
	s.registerVideoRoutes()
	s.registerNotebookRoutes()
	s.registerDimensionRoutes()
	s.registerSearchRoutes()
	s.registerScanRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, e.g. for dumping the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Close cancels any scan started through the API.
func (s *Server) Close() {
	s.cancelScan()
	s.scanLimiter.Stop()
}
