// Package server exposes the attempt worklist over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/retrieval-cli/internal/attempt"
	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/pkg/addressnorm"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store   store.Store
	engine  *attempt.Engine
	address addressnorm.Client

	now     func() time.Time
	slaDays int
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source used for derived views.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithSLADays sets the overdue threshold reported on list rows.
func WithSLADays(days int) Option {
	return func(s *Server) { s.slaDays = days }
}

// WithAllowedOrigins sets the CORS origins. Defaults to any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// New creates a Server.
func New(st store.Store, eng *attempt.Engine, addr addressnorm.Client, opts ...Option) *Server {
	s := &Server{
		store:   st,
		engine:  eng,
		address: addr,
		now:     time.Now,
		slaDays: model.DefaultSLADays,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/attempts", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/options", s.handleOptions)
		r.Get("/export.csv", s.handleExport)
		r.Get("/export.xlsx", s.handleExport)
		r.Post("/bulk", s.handleBulkEdit)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/audit", s.handleAudit)
		r.Patch("/{id}", s.handleEdit)
	})
	r.Post("/address/normalize", s.handleNormalize)

	return r
}
