// Package server exposes comparator sessions over HTTP and streams their
// events over WebSocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/catalog"
	"github.com/sells-group/sportcar/internal/session"
	"github.com/sells-group/sportcar/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	RateLimit      float64 // compare requests per second per client IP
	RateBurst      int
	RequestTimeout time.Duration
	SessionIdleTTL time.Duration
	QuotaLimit     int
	AnalysisDelay  time.Duration
}

// Deps are the collaborators of the server.
type Deps struct {
	Catalog catalog.Catalog
	Store   store.Store
	Engine  session.Comparer
	Issuer  *auth.Issuer
}

// Server is the comparator HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	sessions   *Registry
	limiter    *ipLimiter
	router     chi.Router
	httpServer *http.Server
}

// New creates a server and builds its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Catalog == nil:
		return nil, eris.New("server: nil catalog")
	case deps.Store == nil:
		return nil, eris.New("server: nil store")
	case deps.Engine == nil:
		return nil, eris.New("server: nil comparison engine")
	case deps.Issuer == nil:
		return nil, eris.New("server: nil token issuer")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:*"}
	}

	s := &Server{
		cfg:      cfg,
		deps:     deps,
		sessions: NewRegistry(),
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware(s.deps.Issuer))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// The event stream outlives the request timeout.
		r.Get("/sessions/{sessionID}/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			r.Post("/login", s.handleLogin)

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/brands", s.handleBrands)
				r.Get("/brands/{brand}/models", s.handleModels)
				r.Get("/brands/{brand}/models/{model}/versions", s.handleVersions)
				r.Get("/vehicles/{vehicleID}", s.handleVehicle)
			})
			r.Get("/popular", s.handlePopularList)

			r.With(auth.Require).Get("/usage", s.handleUsage)
			r.With(auth.Require).Get("/history", s.handleHistory)

			r.Post("/sessions", s.handleCreateSession)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.With(auth.Require).Post("/identity", s.handleIdentity)
				r.Post("/selection", s.handleSelect)
				r.Delete("/selection/{vehicleID}", s.handleDeselect)
				r.With(s.limiter.Middleware).Post("/compare", s.handleCompare)
				r.Post("/new", s.handleNewComparison)
				r.Post("/dismiss", s.handleDismiss)
				r.Post("/reset", s.handleReset)
				r.Post("/popular/{popularID}", s.handleShowPopular)
				r.Get("/export", s.handleExport)
			})
		})
	})

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the session registry.
func (s *Server) Sessions() *Registry { return s.sessions }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return eris.Wrap(s.httpServer.Shutdown(ctx), "server: shutdown")
}

// SweepSessions drops idle sessions every interval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) error {
	if s.cfg.SessionIdleTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.sessions.Sweep(s.cfg.SessionIdleTTL); n > 0 {
				zap.L().Info("server: swept idle sessions", zap.Int("count", n))
			}
			s.limiter.sweep(10 * time.Minute)
		}
	}
}
