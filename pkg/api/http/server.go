package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aescanero/aiui/internal/application/backend"
	"github.com/aescanero/aiui/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StreamHandler serves the websocket prediction stream. Close ends every
// open stream; it runs when the server shuts down.
type StreamHandler interface {
	HandlePredictStream(*gin.Context)
	Close()
}

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	service  *backend.Service
	metrics  ports.MetricsCollector
	gatherer prometheus.Gatherer
	limiter  ports.RateLimiter
	logger   *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	AllowedOrigins    []string

	// TrustedProxies lists proxy IPs/CIDRs whose forwarding headers are
	// believed. Nil trusts none and the peer address is the client IP.
	TrustedProxies []string

	Service  *backend.Service
	Metrics  ports.MetricsCollector
	Gatherer prometheus.Gatherer // defaults to prometheus.DefaultGatherer

	// RateLimiter guards the public routes when set
	RateLimiter ports.RateLimiter

	Logger *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(cfg.Logger))
	router.Use(requestMetrics(cfg.Metrics))
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:   router,
		service:  cfg.Service,
		metrics:  cfg.Metrics,
		gatherer: gatherer,
		limiter:  cfg.RateLimiter,
		logger:   cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	return s, nil
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	public := s.router.Group("/")
	if s.limiter != nil {
		public.Use(rateLimitMiddleware(s.limiter, s.metrics))
	}
	{
		public.GET("/", s.handleRoot)
		public.GET("/predict", s.handlePredict)
	}
}

// SetupWebSocket adds the websocket prediction stream to the server.
// Upgraded connections are invisible to http.Server.Shutdown, so the
// handler's Close is hooked onto it.
func (s *Server) SetupWebSocket(handler StreamHandler) {
	s.router.GET("/ws/predict", handler.HandlePredictStream)
	s.server.RegisterOnShutdown(handler.Close)
}

// Handler returns the router for use with httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Shutdown. A clean shutdown
// returns nil.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("HTTP server listening", zap.Stringer("addr", lis.Addr()))

	err := s.server.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("HTTP server stopped: %w", err)
}

// Shutdown stops accepting connections, closes websocket streams and waits
// for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	start := time.Now()
	err := s.server.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("HTTP server did not drain in time", zap.Error(err))
		return fmt.Errorf("HTTP shutdown: %w", err)
	}

	s.logger.Info("HTTP server drained", zap.Duration("took", time.Since(start)))
	return nil
}
