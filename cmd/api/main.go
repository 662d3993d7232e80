package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/campaign-assistant/internal/adapters/http"
	"github.com/kirillkom/campaign-assistant/internal/bootstrap"
	"github.com/kirillkom/campaign-assistant/internal/config"
	"github.com/kirillkom/campaign-assistant/internal/observability/logging"
	"github.com/kirillkom/campaign-assistant/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		ResilienceObserver: httpMetrics.Resilience(),
		GenerationObserver: httpMetrics.Generation(),
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if cfg.EmbeddedWorker {
		workerMetrics := metrics.NewWorkerMetrics(serviceName)
		worker := bootstrap.NewDocumentWorker(serviceName, app, workerMetrics)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("embedded_worker_stopped", "error", err)
			}
		}()
	}

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Ingestor:     app.Ingestor,
		Documents:    app.Documents,
		Retriever:    app.Retriever,
		Synthesizer:  app.Synthesizer,
		Models:       app.Models,
		Metrics:      httpMetrics,
		QueueHealthy: app.QueueHealthy,
	}).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "vector_backend", cfg.VectorBackend, "embedded_worker", cfg.EmbeddedWorker)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
