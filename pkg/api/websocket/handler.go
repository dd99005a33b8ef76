package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const closeGracePeriod = time.Second

// Predictor produces predictions for the stream
type Predictor interface {
	Predict(ctx context.Context) (string, error)
}

type predictionMessage struct {
	Prediction string `json:"prediction"`
}

type errorMessage struct {
	Error string `json:"error"`
}

// Handler handles WebSocket connections
type Handler struct {
	predictor Predictor
	upgrader  websocket.Upgrader
	logger    *zap.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

// NewHandler creates a new WebSocket handler accepting the given origins.
// "*" accepts any origin.
func NewHandler(predictor Predictor, allowedOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		predictor: predictor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// HandlePredictStream answers every inbound message with a prediction.
// The stream ends when the client goes away, the request context ends or
// Close is called.
func (h *Handler) HandlePredictStream(c *gin.Context) {
	if h.isClosed() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	if !h.track(conn) {
		_ = conn.Close()
		return
	}
	defer h.untrack(conn)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Unblocks ReadMessage once the request context ends.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	h.logger.Info("WebSocket connection established", zap.String("client", c.ClientIP()))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				h.logger.Warn("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg interface{}
		prediction, err := h.predictor.Predict(ctx)
		if err != nil {
			h.logger.Error("failed to predict", zap.Error(err))
			msg = errorMessage{Error: err.Error()}
		} else {
			msg = predictionMessage{Prediction: prediction}
		}

		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Error("failed to write message", zap.Error(err))
			return
		}
	}
}

// Close sends a going-away frame to every open stream, closes them and
// refuses further upgrades. Register it with http.Server.RegisterOnShutdown,
// since hijacked connections are not drained by http.Server.Shutdown.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	if len(conns) > 0 {
		h.logger.Info("closing WebSocket connections", zap.Int("count", len(conns)))
	}

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		_ = conn.Close()
	}
}

// ActiveConnections returns the number of open streams
func (h *Handler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Handler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}
