// Command sonaq is the streaming speech-to-text decode server.
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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sonaq/sonaq/internal/config"
	"github.com/sonaq/sonaq/internal/observe"
	"github.com/sonaq/sonaq/internal/server"
	"github.com/sonaq/sonaq/pkg/scorer/mlp"
	"github.com/sonaq/sonaq/pkg/symbol"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sonaq: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sonaq: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sonaq starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "sonaq",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Model artifacts ───────────────────────────────────────────────────────
	table, err := symbol.Load(cfg.Model.SymbolsPath)
	if err != nil {
		slog.Error("failed to load symbol table", "path", cfg.Model.SymbolsPath, "err", err)
		return 1
	}
	sc, err := mlp.Load(cfg.Model.WeightsPath)
	if err != nil {
		slog.Error("failed to load acoustic model", "path", cfg.Model.WeightsPath, "err", err)
		return 1
	}
	if sc.InputDim() != cfg.Feature.NumMelBins {
		slog.Error("model input dimension does not match feature config",
			"model_input_dim", sc.InputDim(),
			"num_mel_bins", cfg.Feature.NumMelBins,
		)
		return 1
	}
	slog.Info("model loaded",
		"vocab_size", sc.VocabSize(),
		"symbols", table.Size(),
		"input_dim", sc.InputDim(),
	)

	srv := server.New(cfg, sc, table, nil)

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if cfg.Server.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:    cfg.Server.MetricsAddr,
			Handler: metricsHandler(),
		}
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// metricsHandler serves the Prometheus scrape endpoint. The OTel Prometheus
// exporter registers with the default registry, which promhttp reads.
func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
