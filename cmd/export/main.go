package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"

	httpadapter "github.com/lkkmills/gee/internal/adapter/http"
	kafkaadapter "github.com/lkkmills/gee/internal/adapter/kafka"
	"github.com/lkkmills/gee/internal/config"
	"github.com/lkkmills/gee/internal/domain"
	"github.com/lkkmills/gee/internal/observability"
	"github.com/lkkmills/gee/internal/pipeline"
	"github.com/lkkmills/gee/internal/source"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	catalog, err := source.LoadRegionCatalog(cfg.RegionsPath)
	if err != nil {
		logger.Error("failed to load region catalog", "path", cfg.RegionsPath, "error", err)
		os.Exit(1)
	}
	logger.Info("region catalog loaded", "regions", catalog.Len())

	variables := domain.DefaultVariables()
	if cfg.VariablesPath != "" {
		variables, err = source.LoadVariables(cfg.VariablesPath)
		if err != nil {
			logger.Error("failed to load variables", "path", cfg.VariablesPath, "error", err)
			os.Exit(1)
		}
	}

	data, err := loadVariableData(cfg.DataDir, variables)
	if err != nil {
		logger.Error("failed to load raster archive", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	orchestrator := pipeline.NewOrchestrator(catalog, logger, metrics, cfg.Workers)
	runner := pipeline.NewRunner(orchestrator, writer, data, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run once at startup, then on the cron schedule when one is configured.
	var scheduler *gocron.Scheduler
	if cfg.RunSchedule != "" {
		scheduler = gocron.NewScheduler(domain.Now().Location())
		_, err := scheduler.Cron(cfg.RunSchedule).Do(func() {
			if err := runner.RunAll(ctx); err != nil {
				logger.Error("scheduled run failed", "error", err)
			}
		})
		if err != nil {
			logger.Error("invalid run schedule", "schedule", cfg.RunSchedule, "error", err)
			os.Exit(1)
		}
		scheduler.StartAsync()
		logger.Info("scheduler started", "schedule", cfg.RunSchedule)
	}

	go func() {
		if err := runner.RunAll(ctx); err != nil {
			logger.Error("aggregation run failed", "error", err)
		}
		if scheduler == nil {
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadVariableData binds each variable spec to its archive data: a
// collection for temporal variables, a single image for static ones.
func loadVariableData(dir string, variables []domain.VariableSpec) ([]pipeline.VariableData, error) {
	manifest, err := source.LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.VariableData, 0, len(variables))
	for _, spec := range variables {
		vd := pipeline.VariableData{Spec: spec}
		if spec.Temporal {
			vd.Collection, err = manifest.Collection(dir, spec.Name)
		} else {
			vd.Image, err = manifest.Image(dir, spec.Name)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, vd)
	}
	return out, nil
}
