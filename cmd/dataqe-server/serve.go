// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/srm999/DataQEsuite/dataqe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DataQE API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// ServerComponents holds the initialized server components
type ServerComponents struct {
	Pool      *pgxpool.Pool
	Service   *dataqe.Service
	Executor  *dataqe.Executor
	Scheduler *dataqe.Scheduler
	JWTAuth   *dataqe.JWTAuth
	Handler   http.Handler
	Logger    *slog.Logger
}

// SetupServer initializes all server components (database, service,
// scheduler, handlers). Shared by serve and by integration tests.
func SetupServer(ctx context.Context, cfg *Config) (*ServerComponents, error) {
	if err := cfg.require(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stageRecorder, err := dataqe.NewPrometheusStageRecorder(registry)
	if err != nil {
		pool.Close()
		return nil, err
	}

	serviceConfig := &dataqe.ServiceConfig{
		AppName:         "dataqe-suite",
		DataRoot:        cfg.DataRoot,
		StageMetrics:    stageRecorder,
		LogStageTimings: cfg.LogStageTimings,
	}
	service, err := dataqe.NewService(pool, serviceConfig, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	var notifier dataqe.Notifier = dataqe.NopNotifier{}
	if cfg.SMTPHost != "" {
		notifier = dataqe.NewSMTPNotifier(dataqe.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger)
	} else {
		logger.Warn("No SMTP host configured - failure notifications disabled")
	}

	executor := dataqe.NewExecutor(service, notifier, logger)
	scheduler := dataqe.NewScheduler(service, executor, logger)
	jwtAuth := dataqe.NewJWTAuth(cfg.JWTSecret)
	handlers := dataqe.NewHTTPHandlers(service, executor, scheduler, jwtAuth, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	handlers.Routes(mux)

	return &ServerComponents{
		Pool:      pool,
		Service:   service,
		Executor:  executor,
		Scheduler: scheduler,
		JWTAuth:   jwtAuth,
		Handler:   mux,
		Logger:    logger,
	}, nil
}

// Close shuts down the server components and cleans up resources
func (sc *ServerComponents) Close() {
	if sc.Scheduler != nil {
		sc.Scheduler.Stop()
	}
	if sc.Service != nil {
		sc.Service.Close()
	}
	if sc.Pool != nil {
		sc.Pool.Close()
	}
}

func runServe(ctx context.Context) error {
	components, err := SetupServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.Scheduler.Start(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: components.Handler,
		// Executions run synchronously inside requests; allow slow ones.
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		components.Logger.Info("Starting DataQE server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	components.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	components.Logger.Info("Server exited")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
