package backend

import (
	"context"
	"fmt"

	"github.com/aescanero/aiui/pkg/ports"
	"go.uber.org/zap"
)

// WelcomeMessage is returned by the root endpoint
const WelcomeMessage = "Welcome to the AI UI Backend!"

// Service answers welcome and prediction requests
type Service struct {
	predictor ports.Predictor
	metrics   ports.MetricsCollector
	logger    *zap.Logger
}

// NewService creates a new backend service
func NewService(predictor ports.Predictor, metrics ports.MetricsCollector, logger *zap.Logger) *Service {
	return &Service{
		predictor: predictor,
		metrics:   metrics,
		logger:    logger,
	}
}

// Welcome returns the welcome message
func (s *Service) Welcome() string {
	return WelcomeMessage
}

// Predict returns a prediction from the configured predictor
func (s *Service) Predict(ctx context.Context) (string, error) {
	prediction, err := s.predictor.Predict(ctx)
	if err != nil {
		s.logger.Error("prediction failed",
			zap.String("provider", s.predictor.Provider()),
			zap.Error(err))
		return "", fmt.Errorf("prediction failed: %w", err)
	}

	s.metrics.IncPredictions(s.predictor.Provider())
	s.logger.Debug("prediction served", zap.String("provider", s.predictor.Provider()))

	return prediction, nil
}

// Provider returns the name of the predictor backing this service
func (s *Service) Provider() string {
	return s.predictor.Provider()
}
