// Package api is the document server: a small JSON API that stores whole
// user documents in any remote.Store backend so clients can use it as
// their remote store.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/icberg-810202/tilecatread/internal/auth"
	"github.com/icberg-810202/tilecatread/internal/ratelimit"
	"github.com/icberg-810202/tilecatread/internal/remote"
	"github.com/icberg-810202/tilecatread/internal/sse"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	// Heartbeat is the keepalive interval of document event streams.
	Heartbeat time.Duration
}

func (o *Options) setDefaults() {
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 10
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 20
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 8 << 20
	}
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store   remote.Store
	tokens  *auth.TokenService
	limiter *ratelimit.KeyedRateLimiter
	opts    Options
	router  *chi.Mux
	api     huma.API
	logger  *slog.Logger

	events     *sse.Manager
	streams    *sse.Handler
	stopEvents context.CancelFunc
}

// NewServer creates a server with all routes configured.
func NewServer(store remote.Store, tokens *auth.TokenService, opts Options, logger *slog.Logger) *Server {
	opts.setDefaults()

	s := &Server{
		store:   store,
		tokens:  tokens,
		limiter: ratelimit.New(opts.RateLimitRPS, opts.RateLimitBurst),
		opts:    opts,
		router:  chi.NewRouter(),
		logger:  logger,
		events:  sse.NewManager(logger.With("component", "sse")),
	}
	s.streams = sse.NewHandler(s.events, opts.Heartbeat, logger.With("component", "sse"))

	var ctx context.Context
	ctx, s.stopEvents = context.WithCancel(context.Background())
	go s.events.Start(ctx)

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Tilecatread Document API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerDocumentRoutes()
	s.router.Get("/api/v1/documents/{username}/events", s.handleDocumentEvents)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// Close disconnects event streams and releases background resources.
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Shutdown(ctx); err != nil {
		s.logger.Warn("event stream shutdown incomplete", "error", err)
	}
	s.stopEvents()
	s.limiter.Stop()
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(rateLimitMiddleware(s.limiter, s.logger))
	s.router.Use(authMiddleware(s.tokens))
}
