package placeholder

import (
	"context"

	"go.uber.org/zap"
)

const (
	// ProviderName is the provider key used in configuration and metrics
	ProviderName = "placeholder"

	// Prediction is returned for every request
	Prediction = "This is a dummy AI prediction."
)

// Predictor returns a fixed prediction without running any model
type Predictor struct {
	logger *zap.Logger
}

// NewPredictor creates a new placeholder predictor
func NewPredictor(logger *zap.Logger) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{logger: logger}
}

// Predict returns the placeholder prediction
func (p *Predictor) Predict(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.logger.Debug("serving placeholder prediction")
	return Prediction, nil
}

// Provider returns the provider name
func (p *Predictor) Provider() string {
	return ProviderName
}
