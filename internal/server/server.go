package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/monitoring"
	"github.com/medrex/clinic-backend/pkg/rbac"
)

// RouteRegistrar is implemented by every domain service that exposes
// HTTP endpoints
type RouteRegistrar interface {
	RegisterRoutes(api *mux.Router)
}

// Server is the HTTP front door: routing, authentication, rate
// limiting, capability checks, and observability endpoints
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	router    *mux.Router
	server    *http.Server
	validator *TokenValidator
	limiter   *RateLimiter
	matrix    rbac.Authorizer
	metrics   *monitoring.MetricsCollector
	health    *monitoring.HealthManager
	audit     *AuditRecorder
}

// New creates the HTTP server and registers every service's routes
// under /api/v1
func New(cfg *config.Config, log *logger.Logger, metrics *monitoring.MetricsCollector,
	health *monitoring.HealthManager, audit *AuditRecorder, registrars ...RouteRegistrar) *Server {

	s := &Server{
		config:    cfg,
		logger:    log,
		router:    mux.NewRouter(),
		validator: NewTokenValidator(&cfg.JWT),
		matrix:    rbac.DefaultMatrix(),
		metrics:   metrics,
		health:    health,
		audit:     audit,
	}

	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
		cleanupInterval := time.Duration(cfg.RateLimit.CleanupInterval) * time.Second
		if cleanupInterval <= 0 {
			cleanupInterval = time.Hour
		}
		s.limiter.StartCleanup(cleanupInterval)
	}

	s.setupRoutes(registrars)
	s.setupMiddleware()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(registrars []RouteRegistrar) {
	s.router.HandleFunc(s.healthPath(), s.health.HTTPHandler()).Methods("GET")

	if s.config.Monitoring.Enabled && s.metrics != nil {
		s.router.Handle(s.metricsPath(), s.metrics.Handler()).Methods("GET")
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	for _, registrar := range registrars {
		registrar.RegisterRoutes(api)
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.authMiddleware)
	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.rbacMiddleware)
	s.router.Use(s.auditMiddleware)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the underlying router, mainly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) healthPath() string {
	if s.config.Monitoring.HealthPath != "" {
		return s.config.Monitoring.HealthPath
	}
	return "/health"
}

func (s *Server) metricsPath() string {
	if s.config.Monitoring.MetricsPath != "" {
		return s.config.Monitoring.MetricsPath
	}
	return "/metrics"
}

// routePattern reports the matched route template for metrics so path
// parameters do not blow up label cardinality
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
