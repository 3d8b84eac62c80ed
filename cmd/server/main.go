// Package main is the entrypoint for the workflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/biosphere-bio/workflow-api/internal/api"
	"github.com/biosphere-bio/workflow-api/internal/api/handler"
	"github.com/biosphere-bio/workflow-api/internal/api/response"
	"github.com/biosphere-bio/workflow-api/internal/config"
	"github.com/biosphere-bio/workflow-api/internal/pipeline"
	"github.com/biosphere-bio/workflow-api/internal/pipeline/helical"
	"github.com/biosphere-bio/workflow-api/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Best effort: a missing .env is fine, env vars still apply.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "pipeline", cfg.Pipeline.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	store, err := workflow.NewStore(cfg.Storage.WorkflowsDir())
	if err != nil {
		return fmt.Errorf("open workflow store: %w", err)
	}
	tracker := workflow.NewTracker()
	queue := workflow.NewQueue(cfg.Workflow.MaxQueueDepth)

	registry := pipeline.NewRegistry()
	runner := pipeline.NewDispatcher(registry,
		helical.NewRunner(cfg.Pipeline.BaseURL, cfg.Storage.ResultsDir, cfg.Pipeline.Timeout))

	svc := workflow.NewService(store, tracker, queue, runner, cfg.Storage.UploadDir)
	svc.Start(ctx)
	slog.Info("worker started", "runner", runner.Name(), "max_queue_depth", cfg.Workflow.MaxQueueDepth)

	deps := api.Dependencies{
		HealthHandler:  healthHandler(cfg.Storage),
		SubmitWorkflow: handler.NewSubmitWorkflowHandler(svc, cfg.Storage),
		WorkflowStatus: handler.NewWorkflowStatusHandler(svc),
		ListWorkflows:  handler.NewListWorkflowsHandler(svc),
		DownloadResult: handler.NewDownloadResultHandler(svc),
		UploadFile:     handler.NewUploadFileHandler(cfg.Storage),
		ListModels:     handler.NewListModelsHandler(registry),
	}

	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	queue.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler verifies the durable store directory is writable.
func healthHandler(storage config.StorageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"store": "ok"}

		probe := storage.WorkflowsDir()
		f, err := os.CreateTemp(probe, ".health-*")
		if err != nil {
			checks["store"] = "degraded"
		} else {
			f.Close()
			os.Remove(f.Name())
		}

		if checks["store"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
