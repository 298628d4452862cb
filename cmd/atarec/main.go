package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aeromaint/atarec/internal/catalog"
	"github.com/aeromaint/atarec/internal/config"
	"github.com/aeromaint/atarec/internal/engine"
	"github.com/aeromaint/atarec/internal/extractors"
	"github.com/aeromaint/atarec/internal/metrics"
	"github.com/aeromaint/atarec/internal/models"
	"github.com/aeromaint/atarec/internal/registry"
	"github.com/aeromaint/atarec/internal/repo"
	"github.com/aeromaint/atarec/internal/services"
	"github.com/aeromaint/atarec/internal/utils"
)

func main() {
	var configPath, inputPath, outputPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&inputPath, "input", "", "Work-order batch to process (.csv, .jsonl)")
	flag.StringVar(&outputPath, "output", "", "Where to write annotated results (.csv, .jsonl)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.JSON)

	if inputPath == "" || outputPath == "" {
		logger.Error("both -input and -output are required")
		flag.Usage()
		os.Exit(2)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	policy, err := engine.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		logger.Error("failed to load decision policy", slog.String("path", cfg.Policy.Path), slog.Any("error", err))
		os.Exit(1)
	}

	// Shared artifacts load before any row is touched: a corrupt artifact is
	// fatal, a missing optional one degrades the dependent signal.
	var registryIndex extractors.Registry
	regIdx, err := registry.Open(cfg.Artifacts.RegistryPath)
	switch {
	case errors.Is(err, registry.ErrNotBuilt):
		logger.Warn("reference registry not built", slog.String("path", cfg.Artifacts.RegistryPath))
	case err != nil:
		logger.Error("failed to open reference registry", slog.Any("error", err))
		os.Exit(1)
	default:
		registryIndex = regIdx
		logger.Info("reference registry loaded", slog.Int("references", regIdx.Len()))
	}

	var cat *catalog.Catalog
	cat, err = catalog.Open(cfg.Artifacts.CatalogPath)
	switch {
	case errors.Is(err, catalog.ErrNotBuilt):
		logger.Warn("ata catalog not built", slog.String("path", cfg.Artifacts.CatalogPath))
		cat = nil
	case err != nil:
		logger.Error("failed to open ata catalog", slog.Any("error", err))
		os.Exit(1)
	default:
		logger.Info("ata catalog loaded", slog.Int("entries", cat.Len()))
	}

	orders, err := repo.ReadWorkOrders(inputPath)
	if err != nil {
		logger.Error("failed to read work orders", slog.String("path", inputPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("batch loaded", slog.String("path", inputPath), slog.Int("rows", len(orders)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Metrics.Address,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Metrics.Address))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
			}
		}()
	}

	pipeline := engine.NewPipeline(logger, registryIndex, cat, policy)
	runner := services.NewRunner(logger, pipeline, cfg.Batch.Workers, cfg.Batch.ProgressInterval)

	results, report, err := runner.Run(ctx, orders)
	if err != nil {
		logger.Error("batch run aborted", slog.Any("error", err))
		os.Exit(1)
	}

	if err := repo.WriteResults(outputPath, results); err != nil {
		logger.Error("failed to write results", slog.String("path", outputPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("batch complete",
		slog.String("run_id", report.RunID),
		slog.Int("rows", report.Rows),
		slog.Int("non_defect", report.NonDefect),
		slog.Int("confirmed", report.ByDisposition[models.DispositionConfirm]),
		slog.Int("corrected", report.ByDisposition[models.DispositionCorrect]),
		slog.Int("review", report.ByDisposition[models.DispositionReview]),
		slog.Int("unresolved", report.Unresolved),
		slog.Float64("mean_confidence", report.MeanConfidence),
		slog.Duration("mean_row_latency", report.MeanRowLatency),
		slog.Duration("duration", report.Duration),
	)
	for _, stat := range report.TopCorrections {
		logger.Info("frequent correction",
			slog.String("ata04", stat.ATA04),
			slog.String("system", stat.SystemName),
			slog.Int("count", stat.Count),
		)
	}
	for signal, count := range report.DegradedSignals {
		logger.Warn("degraded signal", slog.String("signal", signal), slog.Int("count", count))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancel()
	}
}
