package predictor

import (
	"fmt"

	"github.com/aescanero/aiui/pkg/adapters/predictor/placeholder"
	"github.com/aescanero/aiui/pkg/ports"
	"go.uber.org/zap"
)

// Config holds predictor configuration
type Config struct {
	Provider string
	Logger   *zap.Logger
}

// NewPredictor creates a new predictor based on provider
func NewPredictor(cfg *Config) (ports.Predictor, error) {
	switch cfg.Provider {
	case placeholder.ProviderName:
		return placeholder.NewPredictor(cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported predictor provider: %s", cfg.Provider)
	}
}
