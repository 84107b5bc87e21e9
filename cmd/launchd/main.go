package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voltfinance/voltage-launchpad/config"
	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/native/launch"
	"github.com/voltfinance/voltage-launchpad/observability/logging"
	telemetry "github.com/voltfinance/voltage-launchpad/observability/otel"
	"github.com/voltfinance/voltage-launchpad/services/auditlog"
	"github.com/voltfinance/voltage-launchpad/services/launchpad"
	"github.com/voltfinance/voltage-launchpad/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./launchpad.toml", "path to launchpad configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("launchd", cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err := run(cfg, logger); err != nil {
		logger.Error("launchd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "launchd",
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open %s state: %w", cfg.Backend, err)
	}
	defer db.Close()

	var (
		sinks []events.Emitter
		audit launchpad.AuditReader
	)
	if dsn := strings.TrimSpace(cfg.Audit.DSN); dsn != "" {
		if !strings.Contains(dsn, "://") && !filepath.IsAbs(dsn) {
			dsn = filepath.Join(cfg.DataDir, dsn)
		}
		sink, err := auditlog.Open(dsn, logger)
		if err != nil {
			return err
		}
		defer sink.Close()
		sinks = append(sinks, sink)
		audit = sink
	}

	params, err := cfg.LaunchParams()
	if err != nil {
		return err
	}
	addrs, err := cfg.Addresses()
	if err != nil {
		return err
	}
	svc, err := launchpad.New(db, launchpad.Config{
		Factory: launch.FactoryConfig{
			Owner:            addrs.Owner,
			PenaltyCollector: addrs.PenaltyCollector,
			Params:           params,
		},
		Reserve: launchpad.AssetSpec{Address: addrs.ReserveAsset, Symbol: cfg.Registry.ReserveSymbol, Decimals: cfg.Registry.ReserveDecimals},
		Stake:   launchpad.AssetSpec{Address: addrs.StakeAsset, Symbol: cfg.Registry.StakeSymbol, Decimals: cfg.Registry.StakeDecimals},
	}, logger, sinks...)
	if err != nil {
		return err
	}

	authEnabled := strings.TrimSpace(cfg.Auth.AdminSecret) != ""
	if !authEnabled {
		logger.Warn("auth disabled: callers are taken from the " + launchpad.CallerHeader + " header")
	}
	server := launchpad.NewServer(svc, launchpad.ServerConfig{
		Auth: launchpad.AuthConfig{
			Enabled:    authEnabled,
			HMACSecret: cfg.Auth.AdminSecret,
			Issuer:     cfg.Auth.Issuer,
		},
		RateLimit: launchpad.RateLimit{RequestsPerSecond: cfg.RateLimit.RequestsPerSecond, Burst: cfg.RateLimit.Burst},
		Audit:     audit,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(server.Handler(), "launchd"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("launchd listening", "addr", cfg.ListenAddress, "backend", cfg.Backend, "auth", authEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemDB(), nil
	case "bolt":
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "launchpad.db"), nil)
	default:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "leveldb"))
	}
}
