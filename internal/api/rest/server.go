// internal/api/rest/server.go
package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tamzrod/sunhome-poller/internal/api/websocket"
	"github.com/tamzrod/sunhome-poller/internal/config"
	"github.com/tamzrod/sunhome-poller/internal/poller"
	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/sensor"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// LinkStatus is the read side of the Modbus link.
type LinkStatus interface {
	State() (poller.LinkState, string)
}

// Server is the read-only HTTP surface over the snapshot store.
type Server struct {
	router  *gin.Engine
	store   *status.Store
	table   *registers.Table
	sensors []sensor.Sensor
	link    LinkStatus
	wsHub   *websocket.Hub
	metrics http.Handler
	limiter *rate.Limiter
	logger  *zap.Logger
	server  *http.Server
	now     func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithHub enables the live feed at /api/v1/ws/live.
func WithHub(h *websocket.Hub) Option {
	return func(s *Server) { s.wsHub = h }
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLink exposes link state at /api/v1/link.
func WithLink(l LinkStatus) Option {
	return func(s *Server) { s.link = l }
}

func NewServer(cfg *config.Config, store *status.Store, table *registers.Table, logger *zap.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:  gin.New(),
		store:   store,
		table:   table,
		sensors: sensor.BuildAll(table, store),
		logger:  logger,
		now:     time.Now,
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	}
	for _, o := range opts {
		o(s)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the port synchronously, then serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("rest: listen %s: %w", s.server.Addr, err)
	}

	s.logger.Info("Starting REST API server", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggerMiddleware(s.logger))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter))
	}

	s.router.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/snapshot", s.getSnapshot)

		sensors := v1.Group("/sensors")
		{
			sensors.GET("", s.listSensors)
			sensors.GET("/:address", s.getSensor)
		}

		if s.link != nil {
			v1.GET("/link", s.getLink)
		}

		if s.wsHub != nil {
			ws := v1.Group("/ws")
			{
				ws.GET("/live", s.wsLiveConnection)
				ws.GET("/status", s.wsStatus)
			}
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	doc := status.Encode(s.store.Get(), s.table, s.now())
	websocket.ServeWs(s.wsHub, c.Writer, c.Request, websocket.NewMessage(websocket.MessageTypeSnapshot, doc))
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.ClientCount(),
	})
}
