// Package api provides the HTTP API server and handlers for Purriosity.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/media"
	"github.com/purriosity/purriosity-server/internal/metrics"
	"github.com/purriosity/purriosity-server/internal/ratelimit"
	"github.com/purriosity/purriosity-server/internal/search"
	"github.com/purriosity/purriosity-server/internal/sse"
)

// Infrastructure groups the shared components the server talks to directly,
// outside the services.
type Infrastructure struct {
	Backend    backend.Client
	Verifier   *auth.TokenVerifier
	Events     *sse.Manager
	BlogIndex  *search.SearchIndex // nil when blog search is disabled
	Metrics    *metrics.Metrics    // nil disables /metrics
	LocalMedia *media.LocalStore   // set when uploads are stored on local disk
}

// Options holds the request-facing settings of the server.
type Options struct {
	Version string
	// PublicURL and LoginPath build the login redirect sent with AUTH_REQUIRED.
	PublicURL   string
	LoginPath   string
	CORSOrigins []string
	// SearchDebounce is the idle time of the live search socket.
	SearchDebounce time.Duration
	// MutationsPerMinute limits writes per client IP; 0 uses the default.
	MutationsPerMinute int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services        *Services
	infra           Infrastructure
	opts            Options
	router          *chi.Mux
	api             huma.API
	sseHandler      *sse.Handler
	mutationLimiter *ratelimit.KeyedRateLimiter
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, infra Infrastructure, opts Options, logger *slog.Logger) *Server {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	perMinute := opts.MutationsPerMinute
	if perMinute <= 0 {
		perMinute = defaultMutationsPerMinute
	}

	s := &Server{
		services:        services,
		infra:           infra,
		opts:            opts,
		router:          chi.NewRouter(),
		mutationLimiter: ratelimit.New(ratelimit.PerInterval(perMinute, mutationInterval), defaultMutationBurst),
		logger:          logger,
	}
	if infra.Events != nil {
		s.sseHandler = sse.NewHandler(infra.Events, logger)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Purriosity API", opts.Version)
	humaConfig.Info.Description = "Cat products, purrs and the Purriosity magazine."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources owned by the server.
func (s *Server) Close() {
	s.mutationLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	if len(s.opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if s.infra.Metrics != nil {
		s.router.Use(s.infra.Metrics.Middleware())
	}

	s.router.Use(authMiddleware(s.infra.Verifier, s.logger))
	s.router.Use(RateLimitMiddleware(s.mutationLimiter, s.logger, isMutation))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerProductRoutes()
	s.registerPurrRoutes()
	s.registerSavedRoutes()
	s.registerCategoryRoutes()
	s.registerSearchRoutes()
	s.registerBlogRoutes()
	s.registerAdminRoutes()

	// Streaming and raw routes live outside huma.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
	s.router.Get("/api/v1/search/live", s.handleLiveSearch)
	if s.infra.Metrics != nil {
		s.router.Handle("/metrics", s.infra.Metrics.Handler())
	}
	if s.infra.LocalMedia != nil {
		s.router.Get("/media/*", s.handleServeMedia)
	}
}
