package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"planner/internal/cli"
	plog "planner/internal/log"
	"planner/internal/metrics"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.SetupLogger(plog.ComponentWorker, "info").Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(plog.ComponentWorker, cfg.LogLevel)
	logger.Info("Starting recurring-worker", "backend", cfg.DataBackend, "schedule", cfg.GenerationSchedule)

	ctx, stop := cli.SignalContext()
	defer stop()

	m := metrics.New()
	app, err := cli.Bootstrap(ctx, cfg, logger, m)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Cleanup failed", "error", err)
		}
	}()

	if err := run(ctx, app, logger); err != nil {
		logger.Error("recurring-worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("recurring-worker shutdown complete")
}

func run(ctx context.Context, app *cli.App, logger *plog.Logger) error {
	gen := logger.WithComponent(plog.ComponentGeneration)
	pass := func() {
		report, err := app.Processor.ProcessDue(ctx, time.Now())
		if err != nil {
			gen.ErrorOp(ctx, plog.OpGenerate, err)
			return
		}
		gen.Info("Generation pass complete",
			plog.FieldGenerated, report.Generated,
			plog.FieldReconciled, report.Reconciled,
			plog.FieldFailures, len(report.Failures))
	}

	// Catch up on anything that fell due while the worker was down.
	pass()

	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	if _, err := scheduler.AddFunc(app.Config.GenerationSchedule, pass); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Start()
		<-gCtx.Done()
		// Wait for a running pass to finish before the backend closes.
		<-scheduler.Stop().Done()
		return nil
	})

	if addr := app.Config.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("Serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
