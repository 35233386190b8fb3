// Command weathertools is the MCP-style tool server process: it wires
// config, logging, the two upstream clients, the optional gazetteer-backed
// resolver, the tool registry, and one of the two transports (stream or
// HTTP, selected by cfg.HTTPPort), then drains in-flight work on SIGINT/
// SIGTERM. Grounded on the teacher's cmd/service/main.go wiring order:
// logger -> config -> clients -> circuit breaker -> cache backend ->
// router/transport -> signal-driven graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weathertools/internal/cache"
	"github.com/kjstillabower/weathertools/internal/circuitbreaker"
	"github.com/kjstillabower/weathertools/internal/config"
	"github.com/kjstillabower/weathertools/internal/gazetteer"
	"github.com/kjstillabower/weathertools/internal/lifecycle"
	"github.com/kjstillabower/weathertools/internal/observability"
	"github.com/kjstillabower/weathertools/internal/resolver"
	"github.com/kjstillabower/weathertools/internal/resources"
	"github.com/kjstillabower/weathertools/internal/tools"
	"github.com/kjstillabower/weathertools/internal/transport"
	"github.com/kjstillabower/weathertools/internal/transport/httptransport"
	"github.com/kjstillabower/weathertools/internal/transport/stream"
	"github.com/kjstillabower/weathertools/internal/upstream/proxyclient"
	"github.com/kjstillabower/weathertools/internal/upstream/stationsclient"
)

func main() {
	startTime := time.Now()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	shutdownTracing := observability.InitTracing("weathertools")

	proxy, err := proxyclient.New(proxyclient.Config{BaseURL: cfg.ProxyBaseURL, Timeout: cfg.ProxyTimeout}, logger)
	if err != nil {
		logger.Fatal("proxy client", zap.Error(err))
	}
	stations, err := stationsclient.New(stationsclient.Config{
		BaseURL:  cfg.StationsBaseURL,
		ClientID: cfg.StationsClientID,
		Timeout:  cfg.StationsTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("stations client", zap.Error(err))
	}

	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		Component:        "proxy",
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition("proxy", from.String(), to.String(), float64(to))
		},
	})
	proxy.Engine().SetCircuitBreaker(cb)

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	registry := tools.NewRegistry(logger)
	registry.Register(&tools.ForecastTool{Proxy: proxy})
	registry.Register(&tools.NowcastTool{Proxy: proxy})
	registry.Register(&tools.AirQualityTool{Proxy: proxy})
	registry.Register(&tools.MarineTool{Proxy: proxy})
	registry.Register(&tools.ObservationsTool{Stations: stations})
	registry.Register(&tools.ActivityTool{Registry: registry})
	registry.Register(&tools.RouteTool{Registry: registry})

	// The gazetteer is optional: absence disables places.resolve_name
	// only, per §4.11 ("the transport is responsible for continuing
	// without the resolver tool").
	var catalog *resources.Catalog
	gz, gzErr := gazetteer.Open(cfg.GazetteerPath)
	if gzErr != nil {
		logger.Warn("gazetteer unavailable; places.resolve_name disabled", zap.Error(gzErr))
		catalog = resources.NewCatalog(nil, resources.BuildDateNow(startTime))
	} else {
		defer gz.Close()
		registry.Register(&tools.ResolveTool{Resolver: resolver.New(gz), Cache: cacheSvc})
		catalog = resources.NewCatalog(gz, resources.BuildDateNow(startTime))
	}

	if cfg.HTTPPort == "" {
		runStreamTransport(logger, registry, catalog)
	} else {
		runHTTPTransport(logger, cfg, registry, catalog, startTime)
	}

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	if err := shutdownTracing(context.Background()); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// runStreamTransport drives the stdio transport until EOF, SIGINT, or
// SIGTERM; it owns process lifetime in this mode, unlike the HTTP branch
// which owns only the listener.
func runStreamTransport(logger *zap.Logger, registry *tools.Registry, catalog *resources.Catalog) {
	session := transport.NewSession(registry, catalog)
	tr := &stream.Transport{
		Session:    session,
		In:         os.Stdin,
		Out:        os.Stdout,
		Logger:     logger,
		DrainGrace: stream.DefaultDrainGrace,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("stream transport starting")
	if err := tr.Run(ctx); err != nil {
		logger.Error("stream transport", zap.Error(err))
	}
}

func runHTTPTransport(logger *zap.Logger, cfg *config.Config, registry *tools.Registry, catalog *resources.Catalog, startTime time.Time) {
	var limiter *rate.Limiter
	if cfg.InboundRateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.InboundRateLimitRPS), cfg.InboundRateLimitBurst)
	}

	handler := &httptransport.Handler{
		Registry:   registry,
		Catalog:    catalog,
		Logger:     logger,
		AuthMode:   cfg.AuthMode,
		AuthSecret: cfg.AuthSecret,
		StartTime:  startTime,
	}
	router := httptransport.NewRouter(handler, limiter, cfg.ProxyTimeout+cfg.StationsTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http transport starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http transport", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http transport shutdown", zap.Error(err))
	}
}
