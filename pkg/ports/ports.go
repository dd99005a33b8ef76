// Package ports declares the interfaces the application layer depends on.
// Adapters under pkg/adapters implement them.
package ports

import (
	"context"
	"time"
)

// Predictor produces a prediction for the /predict surfaces
type Predictor interface {
	Predict(ctx context.Context) (string, error)

	// Provider names the backing implementation, used as a metric label
	Provider() string
}

// MetricsCollector records service metrics
type MetricsCollector interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	IncPredictions(provider string)
	IncRateLimited(route string)
}

// RateLimiter decides whether a client identified by key may proceed
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}
