package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clauseguard/docengine/internal/bootstrap"
	"github.com/clauseguard/docengine/internal/config"
	"github.com/clauseguard/docengine/internal/observability/logging"
	"github.com/clauseguard/docengine/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	processor := app.ProcessUC.WithStageMonitor(stageMonitor{metrics: workerMetrics})

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeWorkflowStarted(ctx, func(handlerCtx context.Context, workflowID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.ProcessingTimeout)
		defer cancel()

		if wf, lookErr := app.Workflows.GetByID(processCtx, workflowID); lookErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(wf.CreatedAt))
		}

		workerMetrics.StartWorkflow()
		start := time.Now()
		processErr := processor.ProcessByID(processCtx, workflowID)
		workerMetrics.FinishWorkflow("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// stageMonitor feeds per-stage durations and retry counts into the worker
// metric set.
type stageMonitor struct {
	metrics *metrics.WorkerMetrics
}

func (s stageMonitor) ObserveStage(stage string, duration time.Duration) {
	s.metrics.ObserveStage("worker", stage, duration)
}

func (s stageMonitor) RecordStageRetry(stage string) {
	s.metrics.RecordStageRetry("worker", stage)
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
