package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the AIUI backend
type Config struct {
	// Server configuration
	HTTPHost string `env:"AIUI_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"AIUI_HTTP_PORT" envDefault:"8000"`
	GRPCPort int    `env:"AIUI_GRPC_PORT" envDefault:"0"` // 0 disables the gRPC health server
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Origins allowed by the CORS middleware and the websocket upgrader
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Proxies whose X-Forwarded-For is believed when resolving the client IP.
	// Empty trusts none, so the peer address is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Redis configuration, only dialled when rate limiting is enabled
	Redis RedisConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Predictor configuration
	Predictor PredictorConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// RateLimitConfig holds the per-client sliding window settings
type RateLimitConfig struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// PredictorConfig holds predictor provider configuration
type PredictorConfig struct {
	Provider string `env:"PREDICTOR_PROVIDER" envDefault:"placeholder"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ReadHeaderTimeout time.Duration `env:"TIMEOUT_READ_HEADER" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("gRPC port %d collides with HTTP port", c.GRPCPort)
	}

	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("invalid trusted proxy: %s", p)
			}
		}
	}

	if c.Predictor.Provider != "placeholder" {
		return fmt.Errorf("unsupported predictor provider: %s (only 'placeholder' is supported)", c.Predictor.Provider)
	}

	if c.RateLimit.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required when rate limiting is enabled")
		}
		if c.RateLimit.Requests < 1 {
			return fmt.Errorf("rate limit requests must be at least 1")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// GetGRPCAddr returns the gRPC server address, on the same host as HTTP
func (c *Config) GetGRPCAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.GRPCPort))
}

// GRPCEnabled reports whether the gRPC health server should run
func (c *Config) GRPCEnabled() bool {
	return c.GRPCPort != 0
}
