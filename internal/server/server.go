// Package server provides the HTTP API for the dividend tracker.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"divtrack/internal/dividends"
	"divtrack/internal/events"
	"divtrack/internal/indexes"
	"divtrack/internal/stocks"
)

// Config holds server configuration.
// DBPinger reports whether the backing database answers queries.
type DBPinger interface {
	QuickCheck(ctx context.Context) error
}

type Config struct {
	Log      zerolog.Logger
	Addr     string
	DataDir  string
	DB       DBPinger
	Stocks   *stocks.Repository
	Analyzer *dividends.Analyzer
	Indexes  *indexes.Repository
	Bus      *events.Bus
	DevMode  bool
}

// Server represents the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	stocks         *stocks.Repository
	analyzer       *dividends.Analyzer
	indexes        *indexes.Repository
	systemHandlers *SystemHandlers
	eventsHandler  *EventsStreamHandler
	db             DBPinger
	startupTime    time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		stocks:         cfg.Stocks,
		analyzer:       cfg.Analyzer,
		indexes:        cfg.Indexes,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir),
		eventsHandler:  NewEventsStreamHandler(cfg.Bus, cfg.Log),
		db:             cfg.DB,
		startupTime:    time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.router,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// SSE stream sits outside the timeout middleware's reach on purpose:
		// chi's Timeout cancels the request context, which is how clients
		// disconnect us anyway.
		r.Get("/events", s.eventsHandler.ServeHTTP)

		r.Get("/stocks", s.handleListStocks)
		r.Get("/stocks/{symbol}", s.handleGetStock)
		r.Get("/dividends/analyze/{symbol}", s.handleAnalyzeDividends)
		r.Get("/indexes", s.handleListIndexes)
		r.Get("/system", s.systemHandlers.HandleSystemStats)
	})
}

// Start begins serving requests and blocks until the listener stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	payload := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startupTime).Round(time.Second).String(),
	}

	if s.db != nil {
		if err := s.db.QuickCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("Database ping failed")
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
		} else {
			payload["database"] = "ok"
		}
	}

	writeJSON(w, status, payload)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// response already committed, nothing sensible left to do
		return
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf(format, args...),
	})
}
