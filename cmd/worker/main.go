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

	"golang.org/x/sync/semaphore"

	"github.com/avoronin/docmd/internal/bootstrap"
	"github.com/avoronin/docmd/internal/config"
	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
	"github.com/avoronin/docmd/internal/observability/logging"
	"github.com/avoronin/docmd/internal/observability/metrics"
)

const serviceName = "worker"

// workerObserver feeds per-page timings and token counts from conversion
// runs into the worker metrics registry.
type workerObserver struct {
	metrics *metrics.WorkerMetrics
}

func (o workerObserver) ObservePage(duration time.Duration) {
	o.metrics.ObservePage(serviceName, duration)
}

func (o workerObserver) AddTokens(tokens int) {
	o.metrics.AddTokens(serviceName, tokens)
}

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.Process.SetObserver(workerObserver{metrics: workerMetrics})

	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)

	// Jobs beyond the concurrency cap wait in the handler goroutine; NATS
	// keeps feeding the queue group while earlier documents convert.
	sem := semaphore.NewWeighted(int64(cfg.WorkerConcurrency))
	var processor ports.DocumentProcessor = app.Process

	handler := func(jobCtx context.Context, job domain.OCRJob) error {
		if err := sem.Acquire(jobCtx, 1); err != nil {
			return err
		}
		defer sem.Release(1)

		workerMetrics.StartDocument()
		start := time.Now()
		err := processor.Process(jobCtx, job)
		workerMetrics.FinishDocument(serviceName, time.Since(start), err)
		return err
	}

	slog.Info("worker_started",
		"subject", cfg.NATSSubject,
		"concurrency", cfg.WorkerConcurrency)

	if err := app.Queue.SubscribeOCRJobs(ctx, handler); err != nil {
		slog.Error("worker_subscription_failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics_server_shutdown_failed", "error", err)
	}
	slog.Info("worker_stopped")
}

func startMetricsServer(port string, workerMetrics *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()
	return server
}
