package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/aiui/internal/application/backend"
	"github.com/aescanero/aiui/internal/config"
	"github.com/aescanero/aiui/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/aiui/pkg/adapters/predictor"
	"github.com/aescanero/aiui/pkg/adapters/ratelimit/redis"
	"github.com/aescanero/aiui/pkg/api/grpc"
	"github.com/aescanero/aiui/pkg/api/http"
	"github.com/aescanero/aiui/pkg/api/websocket"
	"github.com/aescanero/aiui/pkg/ports"

	_ "github.com/joho/godotenv/autoload"
	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting AIUI backend",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	pred, err := predictor.NewPredictor(&predictor.Config{
		Provider: cfg.Predictor.Provider,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create predictor", zap.Error(err))
	}

	service := backend.NewService(pred, metricsCollector, logger)

	// Redis is only needed for rate limiting
	var (
		redisClient *goredis.Client
		limiter     ports.RateLimiter
	)
	if cfg.RateLimit.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		limiter = redis.NewLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	}

	// Initialize API servers
	httpServer, err := http.NewServer(&http.Config{
		Addr:              cfg.GetHTTPAddr(),
		ReadHeaderTimeout: cfg.Timeouts.ReadHeaderTimeout,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies:    cfg.TrustedProxies,
		Service:           service,
		Metrics:           metricsCollector,
		RateLimiter:       limiter,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal("failed to create HTTP server", zap.Error(err))
	}
	httpServer.SetupWebSocket(websocket.NewHandler(service, cfg.CORSAllowedOrigins, logger))

	var grpcServer *grpc.Server
	if cfg.GRPCEnabled() {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Addr:   cfg.GetGRPCAddr(),
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Fatal("gRPC server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("AIUI backend started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.Bool("grpc_enabled", cfg.GRPCEnabled()),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("AIUI backend shut down complete")
}

// initLogger builds a JSON production logger at the given level.
// Unknown levels fall back to info.
func initLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.InitialFields = map[string]interface{}{"service": "aiui"}

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return logger
}
