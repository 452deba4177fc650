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

	"github.com/geocoder89/perfeval/internal/app"
	"github.com/geocoder89/perfeval/internal/config"
	"github.com/geocoder89/perfeval/internal/observability"
	"github.com/geocoder89/perfeval/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "perfeval-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	log, logCloser, err := observability.NewLogger(observability.LoggerOptions{
		Env:     cfg.Env,
		LogsDir: cfg.LogsDir,
		ToFile:  cfg.LogToFile,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	w := worker.New(worker.Config{Interval: cfg.BackupInterval, RunOnStart: true}, a.Backup, log)

	health := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           w.HealthHandler(a),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("worker has started", "interval", cfg.BackupInterval.String(), "health_port", cfg.WorkerPort)
		return w.Run(gctx)
	})

	g.Go(func() error {
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		return health.Shutdown(sctx)
	})

	err = g.Wait()
	log.Info("worker shutdown complete")
	return err
}
