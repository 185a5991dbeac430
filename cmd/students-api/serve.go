package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/http/router"
	"github.com/aanand-mishra/student-records/internal/logger"
	"github.com/aanand-mishra/student-records/internal/metrics"
	"github.com/aanand-mishra/student-records/internal/service"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/storage/postgres"
	"github.com/aanand-mishra/student-records/internal/storage/sqlite"
)

// serve runs the HTTP server until the command's context is cancelled or
// SIGINT/SIGTERM arrives, then shuts down gracefully.
func serve(cmd *cobra.Command, configPath string) error {
	cfg, log, err := setup(cmd, configPath)
	if err != nil {
		return err
	}

	log.Info("starting "+appName,
		slog.String("env", cfg.Env),
		slog.String("version", version()),
	)

	// ctx is cancelled on Ctrl+C (SIGINT) or `kill <pid>` (SIGTERM).
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := metrics.New(reg)
	svc := service.New(store, log, m)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      router.New(svc, log, m, reg),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ListenAndServe blocks, so it runs in its own goroutine while this
	// one waits for the shutdown signal.
	serveErr := make(chan error, 1)

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed once Shutdown is called.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}

		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			return fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	// Stop accepting new connections and let in-flight requests finish
	// within the shutdown timeout.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return fmt.Errorf("shutdown http: %w", err)
	}

	log.Info("server stopped gracefully")

	return nil
}

// migrate opens the configured storage, which applies all migrations, and
// closes it again.
func migrate(cmd *cobra.Command, configPath string) error {
	cfg, log, err := setup(cmd, configPath)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("migration failed", slog.String("error", err.Error()))
		return err
	}

	log.Info("schema is up to date", slog.String("driver", cfg.Storage.Driver))

	return store.Close()
}

func setup(cmd *cobra.Command, configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger.New(cfg.Env, cfg.LogLevel, cmd.OutOrStdout()), nil
}

// openStorage connects to the backend selected by cfg.Storage.Driver and
// migrates its schema up. Callers only see the storage.Storage interface.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := postgres.ConnectAndMigrate(ctx, cfg.Storage.Postgres, log)
		if err != nil {
			return nil, err
		}

		return pg, nil
	default:
		db, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}

		log.Info("storage initialised", slog.String("path", cfg.Storage.Path))

		return db, nil
	}
}
