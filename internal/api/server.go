// Package api is the HTTP bridge between presentation clients and the app state.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cinewatch/cinewatch/internal/catalog"
	"github.com/cinewatch/cinewatch/internal/domain"
	"github.com/cinewatch/cinewatch/internal/ratelimit"
	"github.com/cinewatch/cinewatch/internal/sse"
	"github.com/cinewatch/cinewatch/internal/state"
	"github.com/cinewatch/cinewatch/internal/validation"
)

// Catalog is the movie catalog as used by the discovery routes.
type Catalog interface {
	Search(ctx context.Context, query string) ([]catalog.SearchResult, error)
	Trending(ctx context.Context) ([]catalog.SearchResult, error)
	MovieDetails(ctx context.Context, id domain.TitleID) (*catalog.MovieDetails, error)
	Recommendations(ctx context.Context, id domain.TitleID) ([]catalog.SearchResult, error)
}

// Config holds HTTP-level settings.
type Config struct {
	CORSOrigins []string
	// AuthRPS and AuthBurst limit credential attempts per client IP.
	AuthRPS   float64
	AuthBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	state       *state.Store
	catalog     Catalog
	sseManager  *sse.Manager
	sseHandler  *sse.Handler
	validate    *validation.Validator
	authLimiter *ratelimit.KeyedRateLimiter
	cfg         Config
	router      *chi.Mux
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(store *state.Store, cat Catalog, sseManager *sse.Manager, cfg Config, logger *slog.Logger) *Server {
	if cfg.AuthRPS <= 0 {
		cfg.AuthRPS = 1
	}
	if cfg.AuthBurst <= 0 {
		cfg.AuthBurst = 5
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		state:       store,
		catalog:     cat,
		sseManager:  sseManager,
		sseHandler:  sse.NewHandler(sseManager, logger),
		validate:    validation.New(),
		authLimiter: ratelimit.New(cfg.AuthRPS, cfg.AuthBurst),
		cfg:         cfg,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources.
func (s *Server) Close() {
	s.authLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Get("/stream", s.sseHandler.ServeHTTP)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimitAuth).Post("/signin", s.handleSignIn)
			r.With(s.rateLimitAuth).Post("/signup", s.handleSignUp)
			r.Post("/signout", s.handleSignOut)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.handleGetWatchlist)
			r.Get("/details", s.handleWatchlistDetails)
			r.Post("/{id}/toggle", s.handleToggleWatchlist)
		})

		r.Route("/viewed", func(r chi.Router) {
			r.Get("/", s.handleGetViewed)
			r.Post("/{id}/toggle", s.handleToggleViewed)
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Get("/", s.handleGetRatings)
			r.Put("/{id}", s.handleSetRating)
		})

		r.Route("/community", func(r chi.Router) {
			r.Get("/", s.handleGetCommunity)
			r.With(s.requireSignedIn).Post("/refresh", s.handleRefreshCommunity)
		})

		r.Route("/profile", func(r chi.Router) {
			r.With(s.requireSignedIn).Get("/", s.handleGetProfile)
			r.Get("/stats", s.handleProfileStats)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/search", s.handleSearch)
			r.Get("/trending", s.handleTrending)
			r.Get("/movies/{id}", s.handleMovieDetails)
			r.Get("/movies/{id}/recommendations", s.handleRecommendations)
		})
	})
}

// requestLogger logs each request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
