// Package httpserver exposes the auth flows and the resource gateways over
// HTTP using the standard library router.
package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"backoffice/boilerplate/internal/config"
	authusecase "backoffice/boilerplate/internal/usecase/auth"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer     *http.Server
	router         *http.ServeMux
	handler        http.Handler
	authService    *authusecase.Service
	authLimiter    *ipRateLimiter
	registry       *prometheus.Registry
	log            *zap.Logger
	basePath       string
	allowedOrigins []string
	addr           string
}

// NewServer constructs a new Server with the auth routes registered.
// Resources are added with MountResource before Start.
func NewServer(cfg config.Config, authService *authusecase.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	mux := http.NewServeMux()
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := withRecover(withObservability(withCORS(mux, cfg.AllowedOrigins), logger, newMetrics(registry)), logger)

	srv := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
		},
		router:         mux,
		handler:        handler,
		authService:    authService,
		authLimiter:    newIPRateLimiter(cfg.AuthRatePerMinute, logger),
		registry:       registry,
		log:            logger,
		basePath:       strings.TrimRight(cfg.BasePath, "/"),
		allowedOrigins: cfg.AllowedOrigins,
		addr:           addr,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.registerAuthRoutes()
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.authLimiter.stop()
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) route(method, path string) string {
	return method + " " + s.basePath + path
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
