package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathertools/internal/config"
	"github.com/kjstillabower/weathertools/internal/lifecycle"
	"github.com/kjstillabower/weathertools/internal/resources"
	"github.com/kjstillabower/weathertools/internal/tools"
)

func newTestHandler(mode config.AuthMode, secret string) *Handler {
	reg := tools.NewRegistry(nil)
	catalog := resources.NewCatalog(nil, "2026-01-01")
	return &Handler{
		Registry:   reg,
		Catalog:    catalog,
		Logger:     zap.NewNop(),
		AuthMode:   mode,
		AuthSecret: secret,
		StartTime:  time.Now(),
	}
}

func TestHandleHealthOK(t *testing.T) {
	lifecycle.SetShuttingDown(false)
	h := newTestHandler(config.AuthNone, "")
	router := NewRouter(h, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleHealthShuttingDown(t *testing.T) {
	lifecycle.SetShuttingDown(true)
	defer lifecycle.SetShuttingDown(false)
	h := newTestHandler(config.AuthNone, "")
	router := NewRouter(h, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHandleMCPToolsList(t *testing.T) {
	h := newTestHandler(config.AuthNone, "")
	router := NewRouter(h, nil, 5*time.Second)

	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleMCPMalformedBody(t *testing.T) {
	h := newTestHandler(config.AuthNone, "")
	router := NewRouter(h, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAuthMiddlewareAPIKeyRejectsMissing(t *testing.T) {
	h := newTestHandler(config.AuthAPIKey, "secret123")
	router := NewRouter(h, nil, 5*time.Second)

	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddlewareAPIKeyAccepts(t *testing.T) {
	h := newTestHandler(config.AuthAPIKey, "secret123")
	router := NewRouter(h, nil, 5*time.Second)

	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAuthMiddlewareJWTAccepts(t *testing.T) {
	secret := "jwt-secret"
	h := newTestHandler(config.AuthJWT, secret)
	router := NewRouter(h, nil, 5*time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "tester"})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAuthMiddlewareJWTRejectsBadToken(t *testing.T) {
	h := newTestHandler(config.AuthJWT, "jwt-secret")
	router := NewRouter(h, nil, 5*time.Second)

	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHealthAndMetricsBypassAuth(t *testing.T) {
	h := newTestHandler(config.AuthAPIKey, "secret123")
	router := NewRouter(h, nil, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	lifecycle.SetShuttingDown(false)
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", w.Code)
	}
}
