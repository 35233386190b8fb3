// Package upstream implements the shared HTTP-call engine used by both the
// proxy client (C2) and the stations client (C3). Per SPEC_FULL.md §9 ("two
// clients, similar shape → composition, not inheritance"), the two clients
// differ only in base URL, timeout, auth header, and cache semantics; this
// package expresses that as a single Engine parametrised by a Policy value,
// generalising the teacher's OpenWeatherClient (internal/client/client.go)
// which hard-coded those concerns into one type.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathertools/internal/circuitbreaker"
	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/observability"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// Policy configures one upstream target: its base URL, default timeout, and
// an optional header decorator (basic-auth for the stations client, none
// for the proxy client).
type Policy struct {
	Name           string // metrics/log label: "proxy" or "stations"
	BaseURL        string
	DefaultTimeout time.Duration
	DecorateHeader func(h http.Header)
	// HasCache is false for clients with no shared reverse-proxy cache
	// (the stations client): their responses are always cached=false.
	HasCache bool
}

// Engine issues requests against one upstream target per Policy.
type Engine struct {
	policy Policy
	client *http.Client
	logger *zap.Logger
	cb     *circuitbreaker.CircuitBreaker

	coalesceMu sync.Mutex
	inFlight   map[string]*coalescedCall
}

// coalescedCall lets concurrent identical GETs share one round trip,
// adapted from the teacher's internal/service/coalescing.go requestCoalescer.
type coalescedCall struct {
	done   chan struct{}
	result Result
	err    error
}

// New creates an Engine for policy.
func New(policy Policy, logger *zap.Logger) *Engine {
	return &Engine{
		policy:   policy,
		client:   &http.Client{Timeout: policy.DefaultTimeout},
		logger:   logger,
		inFlight: make(map[string]*coalescedCall),
	}
}

// SetCircuitBreaker attaches an optional breaker around Fetch.
func (e *Engine) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	e.cb = cb
}

// SetTransport overrides the underlying http.Client's RoundTripper. Exists
// so tests can inject a fake transport instead of depending on real network
// timing to exercise timeout behavior (SPEC_FULL.md §15 open question).
func (e *Engine) SetTransport(rt http.RoundTripper) {
	e.client.Transport = rt
}

// Options configure one Fetch call.
type Options struct {
	Method    string // default GET
	Headers   http.Header
	Body      io.Reader
	Timeout   time.Duration // overrides policy.DefaultTimeout when > 0
	RequestID string        // generated when empty
	Coalesce  bool          // share identical concurrent GETs
}

// Result is a successful upstream response.
type Result struct {
	Data    []byte
	Status  int
	Headers http.Header
	Cache   models.CacheMeta
}

// Fetch issues one request to path with opts, returning a Result or a
// *toolerr.Error (§4.1 contract).
func (e *Engine) Fetch(ctx context.Context, path string, opts Options) (Result, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.policy.DefaultTimeout
	}

	if opts.Coalesce && method == http.MethodGet {
		return e.fetchCoalesced(ctx, method, path, opts, timeout, requestID)
	}

	if e.cb != nil {
		var res Result
		var ferr error
		cbErr := e.cb.Call(ctx, func() error {
			res, ferr = e.doFetch(ctx, method, path, opts, timeout, requestID)
			return ferr
		})
		if cbErr != nil && ferr == nil {
			return Result{}, toolerr.Unavailable("circuit breaker open for %s", e.policy.Name)
		}
		return res, ferr
	}
	return e.doFetch(ctx, method, path, opts, timeout, requestID)
}

func (e *Engine) fetchCoalesced(ctx context.Context, method, path string, opts Options, timeout time.Duration, requestID string) (Result, error) {
	key := method + " " + path
	e.coalesceMu.Lock()
	if call, ok := e.inFlight[key]; ok {
		e.coalesceMu.Unlock()
		<-call.done
		return call.result, call.err
	}
	call := &coalescedCall{done: make(chan struct{})}
	e.inFlight[key] = call
	e.coalesceMu.Unlock()

	call.result, call.err = e.doFetch(ctx, method, path, opts, timeout, requestID)
	close(call.done)

	e.coalesceMu.Lock()
	delete(e.inFlight, key)
	e.coalesceMu.Unlock()

	return call.result, call.err
}

func (e *Engine) doFetch(ctx context.Context, method, path string, opts Options, timeout time.Duration, requestID string) (Result, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullURL, err := joinURL(e.policy.BaseURL, path)
	if err != nil {
		return Result{}, toolerr.Internal("build upstream url: %v", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, fullURL, opts.Body)
	if err != nil {
		return Result{}, toolerr.Internal("build upstream request: %v", err)
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("X-Request-ID", requestID)
	if e.policy.DecorateHeader != nil {
		e.policy.DecorateHeader(req.Header)
	}

	resp, err := e.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		e.logCall(requestID, fullURL, method, 0, latency, false, nil)
		observability.RecordUpstreamCall(e.policy.Name, "network_error")
		if reqCtx.Err() != nil {
			return Result{}, toolerr.Unavailable("upstream %s timed out after %s", e.policy.Name, timeout)
		}
		return Result{}, toolerr.Unavailable("upstream %s request failed: %v", e.policy.Name, err)
	}
	defer resp.Body.Close()

	cache := e.parseCache(resp.Header)
	e.logCall(requestID, fullURL, method, resp.StatusCode, latency, cache.Cached, cache.AgeSeconds)
	observability.RecordUpstreamCall(e.policy.Name, statusClass(resp.StatusCode))
	if cache.Status != nil {
		observability.RecordCacheStatus(*cache.Status)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return Result{}, toolerr.FromHTTPStatus(resp.StatusCode, "", retryAfter, requestID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, toolerr.Unavailable("read upstream %s response: %v", e.policy.Name, err)
	}

	return Result{Data: body, Status: resp.StatusCode, Headers: resp.Header, Cache: cache}, nil
}

// parseCache parses the proxy-status and age headers into CacheMeta per §4.1.
// Clients without a shared cache (HasCache=false) always report cached=false.
func (e *Engine) parseCache(h http.Header) models.CacheMeta {
	if !e.policy.HasCache {
		return models.CacheMeta{Cached: false}
	}
	status := strings.ToUpper(strings.TrimSpace(h.Get("X-Cache-Status")))
	var meta models.CacheMeta
	switch status {
	case string(models.CacheStatusHit):
		s := models.CacheStatusHit
		meta = models.CacheMeta{Cached: true, Status: &s}
	case string(models.CacheStatusExpired):
		s := models.CacheStatusExpired
		meta = models.CacheMeta{Cached: true, Status: &s}
	case string(models.CacheStatusMiss):
		s := models.CacheStatusMiss
		meta = models.CacheMeta{Cached: false, Status: &s}
	case string(models.CacheStatusBypass):
		s := models.CacheStatusBypass
		meta = models.CacheMeta{Cached: false, Status: &s}
	default:
		meta = models.CacheMeta{Cached: false}
	}
	if age, ok := parseAge(h.Get("X-Cache-Age")); ok {
		meta.AgeSeconds = &age
	}
	return meta
}

func parseAge(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseRetryAfter(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func (e *Engine) logCall(requestID, url, method string, status int, latency time.Duration, cached bool, age *int) {
	if e.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("requestId", requestID),
		zap.String("url", url),
		zap.String("method", method),
		zap.Int("status", status),
		zap.Int64("latencyMs", latency.Milliseconds()),
		zap.Bool("cached", cached),
	}
	if age != nil {
		fields = append(fields, zap.Int("ageSeconds", *age))
	}
	// Debug line for the raw per-call detail, preserved alongside the
	// wrapper's info-level tool.start/tool.end per SPEC_FULL.md §15.1.
	e.logger.Debug("upstream call", fields...)
}

// HealthProbe issues a short-timeout GET against healthPath, returning true
// iff the response status is in acceptStatuses. Never returns an error.
func (e *Engine) HealthProbe(ctx context.Context, healthPath string, timeout time.Duration, acceptStatuses ...int) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullURL, err := joinURL(e.policy.BaseURL, healthPath)
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false
	}
	if e.policy.DecorateHeader != nil {
		e.policy.DecorateHeader(req.Header)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	for _, accept := range acceptStatuses {
		if resp.StatusCode == accept {
			return true
		}
	}
	return false
}

func joinURL(base, path string) (string, error) {
	b, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	p, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(p).String(), nil
}

func statusClass(status int) string {
	if status >= 200 && status < 300 {
		return "2xx"
	}
	if status == 429 {
		return "rate_limited"
	}
	if status >= 400 && status < 500 {
		return "4xx"
	}
	if status >= 500 {
		return "5xx"
	}
	return fmt.Sprintf("%d", status)
}
