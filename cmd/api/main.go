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
	"github.com/geocoder89/perfeval/internal/domain/user"
	httpx "github.com/geocoder89/perfeval/internal/http"
	"github.com/geocoder89/perfeval/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "perfeval-api:", err)
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

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	a, err := app.New(ctx, cfg, log, prom)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		id, created, err := a.Auth.EnsureAdmin(ctx, user.CreateRequest{
			Username: cfg.AdminUsername,
			Password: cfg.AdminPassword,
			FullName: cfg.AdminFullName,
			Email:    cfg.AdminEmail,
		})
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", "user_id", id, "username", cfg.AdminUsername)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.NewRouter(a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "lock_mode", cfg.LockMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}
