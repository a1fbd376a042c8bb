// Command registryd runs the skills registry HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentskills/registry/internal/config"
	"github.com/agentskills/registry/internal/dbmigrations"
	"github.com/agentskills/registry/internal/httpserver"
	"github.com/agentskills/registry/internal/identity"
	"github.com/agentskills/registry/internal/logctx"
	"github.com/agentskills/registry/internal/mdrender"
	"github.com/agentskills/registry/internal/objectstore"
	"github.com/agentskills/registry/internal/registry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "maxprocs: %v\n", err)
	}

	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	zapLog, err := newZapLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer zapLog.Sync() //nolint:errcheck

	log := zapr.NewLogger(zapLog)
	logctx.SetBase(log)

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	log.Info("running migrations")
	if err := dbmigrations.Up(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdownTracing(context.Background()) //nolint:errcheck

	store, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:       cfg.S3Endpoint,
		Bucket:         cfg.S3Bucket,
		Region:         cfg.S3Region,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("building object store: %w", err)
	}

	renderer := mdrender.New()
	exchanger := identity.New("")
	svc := registry.New(db, store, renderer, exchanger)

	server := httpserver.New(cfg.HTTPAddr, svc, httpserver.Config{
		APIPrefix:           cfg.APIPrefix,
		CORSOrigins:         cfg.CORSOrigins,
		MaxBundleSize:       cfg.MaxBundleSize,
		MaxDecompressedSize: cfg.MaxDecompressedSize,
		ShutdownTimeout:     cfg.ShutdownTimeout,
	})

	go serveMetrics(log, cfg.MetricsAddr)

	log.Info("starting server", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	return db, nil
}

func newZapLogger(level, format string) (*zap.Logger, error) {
	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = lvl
	}
	return zapCfg.Build()
}

// setupTracing selects a span exporter by OTEL_EXPORTER_OTLP_ENDPOINT (or
// OTEL_TRACES_EXPORTER) via autoexport and installs the resulting provider
// as the global tracer. When neither is set, no provider is installed and
// the global tracer stays a no-op.
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && os.Getenv("OTEL_TRACES_EXPORTER") == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, err
	}
	provider := trace.NewTracerProvider(trace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

func serveMetrics(log logr.Logger, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}
