// Package dashboard serves the live charts, the JSON API and the event
// stream over HTTP.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ServingDashboard/pkg/polling"
	"ServingDashboard/pkg/series"
	"ServingDashboard/pkg/services"
)

const shutdownTimeout = 5 * time.Second

// Backend is the set of one-shot service queries behind the status,
// configuration and table endpoints. *services.Cluster implements it.
type Backend interface {
	StatusBoard(ctx context.Context) []services.ServiceStatus
	ConfigurationBoard(ctx context.Context) []services.ConfigDocument
	Models(ctx context.Context) ([]services.Model, error)
	ContainersTable(ctx context.Context) ([]services.Container, error)
	RequestsTable(ctx context.Context, maxReqs int) (json.RawMessage, error)
	ResetRequests(ctx context.Context) error
	ModelMetricsTable(ctx context.Context) (json.RawMessage, error)
	ContainerMetricsTable(ctx context.Context) (json.RawMessage, error)
	ControllerLogs(ctx context.Context) (json.RawMessage, error)
}

// Options configures a Server.
type Options struct {
	Catalog     *series.Catalog
	Pollers     []*polling.Poller
	Backend     Backend
	Hub         *Hub
	Session     string
	Period      time.Duration
	MaxRequests int
	Logger      *zap.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	catalog     *series.Catalog
	pollers     []*polling.Poller
	backend     Backend
	hub         *Hub
	session     string
	period      time.Duration
	maxRequests int
	log         *zap.Logger
	router      *gin.Engine
}

// NewServer builds the server and its routes.
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(16)
	}
	if opts.MaxRequests <= 0 {
		opts.MaxRequests = services.DefaultMaxRequests
	}

	s := &Server{
		catalog:     opts.Catalog,
		pollers:     opts.Pollers,
		backend:     opts.Backend,
		hub:         opts.Hub,
		session:     opts.Session,
		period:      opts.Period,
		maxRequests: opts.MaxRequests,
		log:         opts.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery())
	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, errors.New(c.Request.URL.Path+" not found"))
	})

	r.GET("/", s.page)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("catalog", s.getCatalog)
		api.GET("catalog/stats", s.getCatalogStats)
		api.GET("families/:name", s.getFamily)
		api.GET("pollers", s.getPollers)
		api.GET("events", s.streamEvents)

		api.GET("status", s.getStatus)
		api.GET("configuration", s.getConfiguration)

		tables := api.Group("tables")
		tables.GET("models", s.getModels)
		tables.GET("containers", s.getContainers)
		tables.GET("requests", s.getRequests)
		tables.DELETE("requests", s.resetRequests)
		tables.GET("metrics/model", s.raw(func(ctx context.Context) (json.RawMessage, error) { return s.backend.ModelMetricsTable(ctx) }))
		tables.GET("metrics/container", s.raw(func(ctx context.Context) (json.RawMessage, error) { return s.backend.ContainerMetricsTable(ctx) }))
		tables.GET("logs", s.raw(func(ctx context.Context) (json.RawMessage, error) { return s.backend.ControllerLogs(ctx) }))
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// Request contexts derive from ctx so open event streams end with it.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("dashboard stopped")
	return nil
}

// requestLogger logs each request at debug level and counts it.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)))
	}
}

func abortWithError(c *gin.Context, code int, err error) {
	body := gin.H{"error": err.Error()}
	if code == http.StatusBadGateway {
		body["reason"] = services.Reason(err)
	}
	c.AbortWithStatusJSON(code, body)
}

var _ Backend = (*services.Cluster)(nil)
