package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/carrier-dashboard/backend/internal/analytics"
	"github.com/carrier-dashboard/backend/internal/api"
	"github.com/carrier-dashboard/backend/internal/chart"
	"github.com/carrier-dashboard/backend/internal/config"
	"github.com/carrier-dashboard/backend/internal/grid"
	"github.com/carrier-dashboard/backend/internal/logging"
	"github.com/carrier-dashboard/backend/internal/metrics"
	"github.com/carrier-dashboard/backend/internal/pivot"
	"github.com/carrier-dashboard/backend/internal/source"
	"github.com/carrier-dashboard/backend/internal/storage"
	"github.com/carrier-dashboard/backend/internal/web"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "carrier dashboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("get executable path: %w", err)
	}
	configPath := filepath.Join(filepath.Dir(exePath), config.FileName)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	logger, err := logging.New(cfg.Advanced.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(cfg.Advanced.TraceStdout)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	var m *metrics.Metrics
	if cfg.Advanced.EnableMetrics {
		m = metrics.New()
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Upstream data source
	fetcher := source.NewFetcher(cfg.Source.URL, cfg.SourceTimeout(), logger, source.WithMetrics(m))
	var cache *source.Cache
	if cfg.CacheTTL() > 0 {
		cache, err = source.OpenCache(cfg.Storage.CacheDirectory, cfg.CacheTTL())
		if err != nil {
			return err
		}
		defer cache.Close()
	}
	provider := source.NewProvider(source.ProviderConfig{
		Source:  fetcher,
		Cache:   cache,
		Timeout: cfg.SourceTimeout(),
		Logger:  logger,
		Metrics: m,
	})

	if cfg.Messaging.NatsURL != "" {
		pub, err := source.NewPublisher(cfg.Messaging.NatsURL, cfg.Messaging.SubjectPrefix, logger)
		if err != nil {
			// Publishing is optional; the dashboard works without it.
			logger.Warn("event publishing disabled", zap.Error(err))
		} else {
			defer pub.Close()
			provider.Subscribe(pub.Publish)
		}
	}

	// Chart overrides
	store, err := storage.Open(cfg.Storage.OverridesDatabase)
	if err != nil {
		return err
	}
	defer store.Close()

	// Pivot cross-tabulation
	engine, err := analytics.Open(analytics.Options{
		Threads:     cfg.Advanced.DuckDBThreads,
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	presets, err := pivot.LoadPresets(cfg.Dashboard.PivotPresetsFile)
	if err != nil {
		return err
	}

	grids := grid.NewManager(logger, m, cfg.Dashboard.DefaultPageSize)
	charts := chart.NewService(provider, store,
		chart.NewAggregator(cfg.Dashboard.StatusSentinel, loc, logger), logger, m)

	hub := api.NewHub(logger)
	defer hub.Close()
	provider.Subscribe(hub.Publish)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:         logger,
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		RequestTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		EnableGzip:     cfg.Advanced.EnableCompression,
		GzipLevel:      cfg.Advanced.CompressionLevel,
		BodyLimit:      cfg.Server.BodyLimit,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   splitOrigins(cfg.Server.AllowOrigins),
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Provider: provider,
		Grids:    grids,
		Charts:   charts,
		Engine:   engine,
		Presets:  presets,
		Hub:      hub,
		Version:  Version,
	}))

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", zap.Error(err))
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(configPath, cfg, embeddedMode)
	logger.Info("server starting",
		zap.String("addr", cfg.GetServerAddr()),
		zap.String("source", cfg.Source.URL),
		zap.String("version", Version))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Expire idle grid views
	g.Go(func() error {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := grids.CleanupOldSessions(cfg.SessionTimeout()); n > 0 {
					logger.Info("expired grid sessions", zap.Int("count", n))
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setupTracing installs a stdout span exporter when enabled. Otherwise the global no-op
// tracer stays in place.
func setupTracing(enabled bool) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func printBanner(configPath string, cfg *config.AppConfig, embedded bool) {
	mode := "API only"
	if embedded {
		mode = "Dashboard (Embedded)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Carrier Dashboard Server                        ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Source:    %-46s║\n", cfg.Source.URL)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embedded {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}
}
