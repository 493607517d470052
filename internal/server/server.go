// Package server exposes an autodoc Session over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jward/autodoc"
	"github.com/jward/autodoc/internal/logging"
)

// Server serves one Session. Session calls are serialized by mu.
type Server struct {
	mu      sync.Mutex
	session *autodoc.Session

	router   *gin.Engine
	registry *prometheus.Registry
	metrics  *metrics
	logger   *log.Logger
	maxBody  int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default is logging.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxBodyBytes limits the size of uploaded archives. Zero means no limit
// beyond the session's own.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// New creates a Server over session with its routes registered.
func New(session *autodoc.Session, opts ...Option) *Server {
	s := &Server{
		session:  session,
		registry: prometheus.NewRegistry(),
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.registry)

	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.instrument())
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	s.registerRoutes(s.router.Group("/v1"))
	return s
}

// registerRoutes registers the module endpoints:
//
//	POST   /v1/modules?root=<path>
//	GET    /v1/modules
//	DELETE /v1/modules/:module
//	GET    /v1/modules/:module/root
//	GET    /v1/modules/:module/files/:file/source
//	GET    /v1/modules/:module/decls/:decl/children
//	GET    /v1/modules/:module/decls/:decl/child?name=
//	GET    /v1/modules/:module/decls/:decl/doc
//	GET    /v1/modules/:module/decls/:decl/info
func (s *Server) registerRoutes(rg *gin.RouterGroup) {
	rg.POST("/modules", s.handleCreateModule)
	rg.GET("/modules", s.handleListModules)
	rg.DELETE("/modules/:module", s.handleCloseModule)
	rg.GET("/modules/:module/root", s.handleRoot)
	rg.GET("/modules/:module/files/:file/source", s.handleFileSource)
	rg.GET("/modules/:module/decls/:decl/children", s.handleChildren)
	rg.GET("/modules/:module/decls/:decl/child", s.handleChild)
	rg.GET("/modules/:module/decls/:decl/doc", s.handleDoc)
	rg.GET("/modules/:module/decls/:decl/info", s.handleInfo)
}

// Handler returns the HTTP handler of s.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", logging.FieldListen, addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
