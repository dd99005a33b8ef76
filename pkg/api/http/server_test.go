package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/aiui/internal/application/backend"
	metrics "github.com/aescanero/aiui/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/aiui/pkg/adapters/predictor/placeholder"
	ratelimit "github.com/aescanero/aiui/pkg/adapters/ratelimit/redis"
	apihttp "github.com/aescanero/aiui/pkg/api/http"
	apiws "github.com/aescanero/aiui/pkg/api/websocket"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

type fixedLimiter struct {
	allow bool
	keys  []string
}

func (l *fixedLimiter) Allow(ctx context.Context, key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}

type brokenPredictor struct{}

func (brokenPredictor) Predict(context.Context) (string, error) { return "", errors.New("boom") }
func (brokenPredictor) Provider() string                        { return "broken" }

func newTestServer(opts ...func(*apihttp.Config)) *apihttp.Server {
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	cfg := &apihttp.Config{
		Addr:           ":0",
		AllowedOrigins: []string{"*"},
		Service:        backend.NewService(placeholder.NewPredictor(logger), collector, logger),
		Metrics:        collector,
		Gatherer:       reg,
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s, err := apihttp.NewServer(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func do(s *apihttp.Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		return nil
	}
	return body
}

func TestCoreRoutes(t *testing.T) {
	Convey("Given the AIUI HTTP server", t, func() {
		s := newTestServer()

		Convey("GET / returns the welcome message", func() {
			rec := do(s, http.MethodGet, "/", nil)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(decode(rec), ShouldResemble, map[string]interface{}{
				"message": "Welcome to the AI UI Backend!",
			})
		})

		Convey("GET /predict returns the placeholder prediction", func() {
			rec := do(s, http.MethodGet, "/predict", nil)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec), ShouldResemble, map[string]interface{}{
				"prediction": "This is a dummy AI prediction.",
			})
		})

		Convey("Repeated requests yield identical responses", func() {
			first := do(s, http.MethodGet, "/predict", nil)
			second := do(s, http.MethodGet, "/predict", nil)

			So(second.Code, ShouldEqual, first.Code)
			So(second.Body.String(), ShouldEqual, first.Body.String())
		})

		Convey("Unknown paths return 404", func() {
			rec := do(s, http.MethodGet, "/nonexistent", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Wrong methods on known paths return 405", func() {
			So(do(s, http.MethodPost, "/", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(do(s, http.MethodPost, "/predict", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(do(s, http.MethodDelete, "/predict", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestPredictFailure(t *testing.T) {
	Convey("Given a server whose predictor fails", t, func() {
		s := newTestServer(func(cfg *apihttp.Config) {
			cfg.Service = backend.NewService(brokenPredictor{}, cfg.Metrics, zap.NewNop())
		})

		Convey("GET /predict returns a structured 500", func() {
			rec := do(s, http.MethodGet, "/predict", nil)

			So(rec.Code, ShouldEqual, http.StatusInternalServerError)

			var body apihttp.ErrorResponse
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body.Error.Code, ShouldEqual, "PREDICTION_FAILED")
		})

		Convey("GET / is unaffected", func() {
			So(do(s, http.MethodGet, "/", nil).Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the AIUI HTTP server", t, func() {
		s := newTestServer()

		Convey("GET /health reports the predictor provider", func() {
			rec := do(s, http.MethodGet, "/health", nil)
			body := decode(rec)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "healthy")
			So(body["checks"], ShouldResemble, map[string]interface{}{"predictor": "placeholder"})
		})

		Convey("GET /metrics exposes counters for served requests", func() {
			do(s, http.MethodGet, "/predict", nil)
			do(s, http.MethodGet, "/nonexistent", nil)

			rec := do(s, http.MethodGet, "/metrics", nil)
			body := rec.Body.String()

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, `aiui_http_requests_total{method="GET",route="/predict",status="200"} 1`)
			So(body, ShouldContainSubstring, `aiui_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
			So(body, ShouldContainSubstring, `aiui_predictions_total{provider="placeholder"} 1`)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given the AIUI HTTP server", t, func() {
		Convey("A request ID is assigned when absent", func() {
			rec := do(newTestServer(), http.MethodGet, "/", nil)
			So(rec.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
		})

		Convey("A supplied request ID is echoed", func() {
			rec := do(newTestServer(), http.MethodGet, "/", http.Header{"X-Request-Id": {"abc-123"}})
			So(rec.Header().Get("X-Request-ID"), ShouldEqual, "abc-123")
		})

		Convey("A CORS preflight is answered with 204", func() {
			rec := do(newTestServer(), http.MethodOptions, "/predict", http.Header{
				"Origin":                        {"http://localhost:3000"},
				"Access-Control-Request-Method": {"GET"},
			})

			So(rec.Code, ShouldEqual, http.StatusNoContent)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			So(rec.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, "GET")
		})

		Convey("Specific origins are echoed and others are not", func() {
			s := newTestServer(func(cfg *apihttp.Config) {
				cfg.AllowedOrigins = []string{"http://localhost:3000"}
			})

			allowed := do(s, http.MethodGet, "/", http.Header{"Origin": {"http://localhost:3000"}})
			So(allowed.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://localhost:3000")

			denied := do(s, http.MethodGet, "/", http.Header{"Origin": {"http://evil.example"}})
			So(denied.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			So(denied.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestRateLimiting(t *testing.T) {
	Convey("Given a server with a rate limiter", t, func() {
		limiter := &fixedLimiter{allow: false}
		s := newTestServer(func(cfg *apihttp.Config) {
			cfg.RateLimiter = limiter
		})

		Convey("Blocked clients receive 429 on public routes", func() {
			rec := do(s, http.MethodGet, "/predict", nil)

			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			So(strings.Contains(rec.Body.String(), "RATE_LIMITED"), ShouldBeTrue)
			So(limiter.keys, ShouldHaveLength, 1)
		})

		Convey("Operational routes bypass the limiter", func() {
			So(do(s, http.MethodGet, "/health", nil).Code, ShouldEqual, http.StatusOK)
			So(limiter.keys, ShouldBeEmpty)
		})

		Convey("Allowed clients are served", func() {
			limiter.allow = true
			So(do(s, http.MethodGet, "/", nil).Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestClientIPResolution(t *testing.T) {
	Convey("Given a server backed by a Redis limiter allowing one request per minute", t, func() {
		mr, err := miniredis.Run()
		So(err, ShouldBeNil)
		defer mr.Close()

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		s := newTestServer(func(cfg *apihttp.Config) {
			cfg.RateLimiter = ratelimit.NewLimiter(client, 1, time.Minute, zap.NewNop())
		})

		Convey("Rotating X-Forwarded-For from one peer does not reset the budget", func() {
			codes := make([]int, 0, 5)
			for i := 0; i < 5; i++ {
				rec := do(s, http.MethodGet, "/predict", http.Header{
					"X-Forwarded-For": {fmt.Sprintf("203.0.113.%d", i+1)},
					"X-Real-Ip":       {fmt.Sprintf("198.51.100.%d", i+1)},
				})
				codes = append(codes, rec.Code)
			}

			So(codes, ShouldResemble, []int{200, 429, 429, 429, 429})
		})
	})

	Convey("Given the limiter key seen by the middleware", t, func() {
		limiter := &fixedLimiter{allow: true}
		header := http.Header{"X-Forwarded-For": {"203.0.113.7"}}

		Convey("Without trusted proxies the peer address is used", func() {
			s := newTestServer(func(cfg *apihttp.Config) { cfg.RateLimiter = limiter })
			do(s, http.MethodGet, "/", header)

			// httptest.NewRequest peers from 192.0.2.1.
			So(limiter.keys, ShouldResemble, []string{"192.0.2.1"})
		})

		Convey("A trusted proxy's forwarded address is used", func() {
			s := newTestServer(func(cfg *apihttp.Config) {
				cfg.RateLimiter = limiter
				cfg.TrustedProxies = []string{"192.0.2.0/24"}
			})
			do(s, http.MethodGet, "/", header)

			So(limiter.keys, ShouldResemble, []string{"203.0.113.7"})
		})
	})

	Convey("An invalid trusted proxy is rejected", t, func() {
		_, err := apihttp.NewServer(&apihttp.Config{
			TrustedProxies: []string{"not-an-ip"},
			Logger:         zap.NewNop(),
		})
		So(err, ShouldNotBeNil)
	})
}

func TestServerLifecycle(t *testing.T) {
	Convey("Given a server listening on a loopback port", t, func() {
		logger := zap.NewNop()
		reg := prometheus.NewRegistry()
		collector := metrics.NewCollector(reg)
		service := backend.NewService(placeholder.NewPredictor(logger), collector, logger)

		s := newTestServer(func(cfg *apihttp.Config) {
			cfg.Service = service
		})
		s.SetupWebSocket(apiws.NewHandler(service, []string{"*"}, logger))

		lis, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)

		served := make(chan error, 1)
		go func() { served <- s.Serve(lis) }()

		base := "http://" + lis.Addr().String()

		Convey("Requests are served until Shutdown, which stops Serve cleanly", func() {
			resp, err := http.Get(base + "/")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			So(s.Shutdown(ctx), ShouldBeNil)
			So(<-served, ShouldBeNil)

			_, err = http.Get(base + "/")
			So(err, ShouldNotBeNil)
		})

		Convey("Shutdown ends open prediction streams", func() {
			conn, _, err := websocket.DefaultDialer.Dial("ws://"+lis.Addr().String()+"/ws/predict", nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			var got map[string]string
			So(conn.WriteMessage(websocket.TextMessage, []byte("predict")), ShouldBeNil)
			So(conn.ReadJSON(&got), ShouldBeNil)
			So(got["prediction"], ShouldEqual, "This is a dummy AI prediction.")

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			So(s.Shutdown(ctx), ShouldBeNil)
			So(<-served, ShouldBeNil)

			_ = conn.WriteMessage(websocket.TextMessage, []byte("predict"))
			So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)

			var readErr error
			for i := 0; i < 2 && readErr == nil; i++ {
				readErr = conn.ReadJSON(&got)
			}
			So(readErr, ShouldNotBeNil)

			var ne net.Error
			So(errors.As(readErr, &ne) && ne.Timeout(), ShouldBeFalse)
		})
	})
}
