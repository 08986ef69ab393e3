// Package server exposes the registered entities over a generic REST
// API: listing with filter/sort/pagination, single-row reads, writes
// through the mutation pipeline and entity metadata for admin UIs.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/tabula"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve context is canceled.
const shutdownTimeout = 10 * time.Second

// Server routes generic entity requests to a manager.
type Server struct {
	manager *tabula.EntityManager
	engine  *gin.Engine
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the server and mounts the API routes.
func New(m *tabula.EntityManager, opts ...Option) *Server {
	s := &Server{manager: m, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(s.logRequests(), gin.Recovery())

	api := e.Group("/api")
	{
		api.GET("/meta", s.listMeta)
		api.GET("/meta/:entity", s.entityMeta)

		api.GET("/:entity", s.list)
		api.GET("/:entity/:id", s.get)
		api.POST("/:entity", s.create)
		api.PUT("/:entity/:id", s.update)
		api.DELETE("/:entity/:id", s.delete)
		api.PATCH("/:entity", s.updateWhere)
		api.DELETE("/:entity", s.deleteWhere)
	}
	s.engine = e
	return s
}

// Handler returns the HTTP handler, mainly for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves addr until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("server shutting down")
		stop, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(stop)
	})
	return g.Wait()
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
