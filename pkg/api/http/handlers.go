package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WelcomeResponse is the body of GET /
type WelcomeResponse struct {
	Message string `json:"message"`
}

// PredictionResponse is the body of GET /predict
type PredictionResponse struct {
	Prediction string `json:"prediction"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleRoot handles the welcome endpoint
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, WelcomeResponse{Message: s.service.Welcome()})
}

// handlePredict handles the prediction endpoint
func (s *Server) handlePredict(c *gin.Context) {
	prediction, err := s.service.Predict(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to predict", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "PREDICTION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, PredictionResponse{Prediction: prediction})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"predictor": s.service.Provider(),
		},
	})
}
