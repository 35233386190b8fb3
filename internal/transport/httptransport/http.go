// Package httptransport implements the stateless HTTP transport (C14): a
// single POST /mcp endpoint dispatching JSON-RPC-style request frames,
// plus GET /health and GET /metrics. Grounded on the teacher's
// internal/http/handlers.go and middleware.go (correlation id, metrics,
// timeout, rate-limit middleware; the health-check status computation
// shape), adapted from a single weather-fetch handler to an MCP-style
// dispatcher. Unlike the teacher's Handler (one long-lived WeatherService),
// §4.12 requires a FRESH Session per request here, since a shared Session
// would let one client's in-flight request ID collide with another's.
package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weathertools/internal/config"
	"github.com/kjstillabower/weathertools/internal/lifecycle"
	"github.com/kjstillabower/weathertools/internal/observability"
	"github.com/kjstillabower/weathertools/internal/resources"
	"github.com/kjstillabower/weathertools/internal/tools"
	"github.com/kjstillabower/weathertools/internal/transport"
)

type ctxKey string

const (
	ctxKeyCorrelationID ctxKey = "correlation_id"
	ctxKeyLogger        ctxKey = "logger"
)

// Handler serves the HTTP transport surface. A new transport.Session is
// built per /mcp request; Registry and Catalog are shared, long-lived.
type Handler struct {
	Registry *tools.Registry
	Catalog  *resources.Catalog
	Logger   *zap.Logger

	AuthMode   config.AuthMode
	AuthSecret string

	StartTime time.Time

	healthMu   sync.Mutex
	healthPrev string
}

// NewRouter builds the mux.Router wired with middleware and routes, ready
// to be driven by an http.Server (main.go owns the Server and its
// graceful Shutdown, mirroring the teacher's cmd/service/main.go).
func NewRouter(h *Handler, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	r.Use(correlationIDMiddleware(h.Logger))
	r.Use(metricsMiddleware)
	r.Use(h.authMiddleware)
	r.Use(rateLimitMiddleware(limiter))

	mcp := r.Path("/mcp").Subrouter()
	mcp.Use(timeoutMiddleware(requestTimeout))
	mcp.Methods(http.MethodPost).HandlerFunc(h.handleMCP)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	return r
}

// handleMCP decodes one JSON-RPC request body, dispatches it through a
// fresh Session, and writes back the response frame (§4.12).
func (h *Handler) handleMCP(w http.ResponseWriter, r *http.Request) {
	var req transport.Request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, transport.Response{
			JSONRPC: "2.0",
			Error:   &transport.RPCError{Code: -32700, Message: "parse error"},
		})
		return
	}

	session := transport.NewSession(h.Registry, h.Catalog)
	resp := session.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth mirrors the teacher's GetHealth: 503 with status
// "shutting-down" while lifecycle.IsShuttingDown(), 200 otherwise.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if lifecycle.IsShuttingDown() {
		status = "shutting-down"
		code = http.StatusServiceUnavailable
	}

	h.healthMu.Lock()
	prev := h.healthPrev
	if prev != "" && prev != status {
		h.Logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthPrev = status
	h.healthMu.Unlock()

	writeJSON(w, code, map[string]any{
		"status":    status,
		"transport": "http",
		"uptime":    time.Since(h.StartTime).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// correlationIDMiddleware mirrors the teacher's CorrelationIDMiddleware:
// reuse X-Correlation-ID from the client, or mint one, echo it back, and
// attach a request-scoped logger.
func correlationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}
			ctx := context.WithValue(r.Context(), ctxKeyCorrelationID, corrID)
			reqLogger := logger
			if reqLogger != nil {
				reqLogger = reqLogger.With(zap.String("correlation_id", corrID))
			}
			ctx = context.WithValue(ctx, ctxKeyLogger, reqLogger)
			w.Header().Set("X-Correlation-ID", corrID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// metricsMiddleware instruments every HTTP request with the observability
// counters added for this transport, using a path template (not the raw
// path) as the route label to avoid unbounded cardinality (§4.7).
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTPRequestsInFlight.Inc()
		defer observability.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeTemplate(r.URL.Path)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusClass(rec.statusCode)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(path string) string {
	switch {
	case path == "/mcp":
		return "/mcp"
	case path == "/health":
		return "/health"
	case path == "/metrics":
		return "/metrics"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// timeoutMiddleware bounds each /mcp call so one slow upstream fetch cannot
// hold a connection open indefinitely (teacher's TimeoutMiddleware).
func timeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rateLimitMiddleware rejects with 429 once the shared token bucket is
// exhausted; a nil limiter disables rate limiting entirely.
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeRateLimitError(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimitError(w http.ResponseWriter, r *http.Request) {
	corrID, _ := r.Context().Value(ctxKeyCorrelationID).(string)
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error": map[string]string{
			"code":      "RATE_LIMITED",
			"message":   "Too many requests",
			"requestId": corrID,
		},
	})
}

// authMiddleware enforces config.AuthMode: none passes everything through,
// api_key checks a static X-API-Key header, jwt verifies a Bearer token
// signed with the shared secret (HMAC; §6 names no asymmetric mode).
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		switch h.AuthMode {
		case config.AuthNone, "":
			next.ServeHTTP(w, r)
		case config.AuthAPIKey:
			if r.Header.Get("X-API-Key") != h.AuthSecret || h.AuthSecret == "" {
				writeAuthError(w, r)
				return
			}
			next.ServeHTTP(w, r)
		case config.AuthJWT:
			if !h.validJWT(r) {
				writeAuthError(w, r)
				return
			}
			next.ServeHTTP(w, r)
		default:
			writeAuthError(w, r)
		}
	})
}

func (h *Handler) validJWT(r *http.Request) bool {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return false
	}
	raw := strings.TrimPrefix(authz, "Bearer ")
	secret := []byte(h.AuthSecret)
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return false
	}
	_, ok := token.Claims.(jwt.MapClaims)
	return ok && token.Valid
}

func writeAuthError(w http.ResponseWriter, r *http.Request) {
	corrID, _ := r.Context().Value(ctxKeyCorrelationID).(string)
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error": map[string]string{
			"code":      "UNAUTHORIZED",
			"message":   "missing or invalid credentials",
			"requestId": corrID,
		},
	})
}
