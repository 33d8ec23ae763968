// Package api exposes the SIP analyses over HTTP
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gosip/app"
	"gosip/internal"
	"gosip/internal/config"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 64 << 20

// Server routes API requests to the SIP service
type Server struct {
	router   *chi.Mux
	service  *app.SIPService
	defaults config.AnalysisConfig
	logger   *internal.Logger
}

// NewServer creates the API server. defaults fill every option a request
// leaves unset.
func NewServer(service *app.SIPService, defaults config.AnalysisConfig) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		service:  service,
		defaults: defaults,
		logger:   internal.NewDefaultLogger(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/bdshift", s.handleBDShift)
		r.Post("/qsip", s.handleQSIP)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/report", s.handleRunReport)
	})
}
