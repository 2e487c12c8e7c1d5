// cronhostd is the gateway process: it owns the SQLite store, runs the
// engine (scheduler + reaper + executor) in-process, dispatches failure
// notifications, and serves the REST/WebSocket API over it.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ErlanBelekov/cronhost/config"
	"github.com/ErlanBelekov/cronhost/internal/engine"
	"github.com/ErlanBelekov/cronhost/internal/health"
	"github.com/ErlanBelekov/cronhost/internal/infrastructure/sqlite"
	ctxlog "github.com/ErlanBelekov/cronhost/internal/log"
	"github.com/ErlanBelekov/cronhost/internal/metrics"
	"github.com/ErlanBelekov/cronhost/internal/notify"
	httptransport "github.com/ErlanBelekov/cronhost/internal/transport/http"
	"github.com/ErlanBelekov/cronhost/internal/usecase"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Fatalf("log dir: %v", err)
	}
	logger := newLogger(cfg.LogFormat, cfg.SlogLevel(), cfg.LogDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()
	logger.Info("store opened", "path", cfg.DBPath)

	metrics.Register()
	checker := health.NewChecker(store, logger, prometheus.DefaultRegisterer)

	host := engine.NewHost(store, logger, engine.Config{
		TickInterval:      time.Second,
		MaxConcurrentRuns: cfg.WorkerPoolSize(),
		RetentionInterval: time.Duration(cfg.CheckIntervalSec) * time.Second,
		RetentionHorizon:  time.Duration(cfg.RunRetentionDays) * 24 * time.Hour,
		LogDir:            cfg.LogDir,
	})
	if err := host.Start(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}

	facade := usecase.New(store, host, logger)

	sinks := buildSinks(cfg, logger)
	if len(sinks) > 0 {
		sub := host.Subscribe()
		dispatcher := notify.NewDispatcher(sub, logger, sinks...)
		go dispatcher.Run(ctx)
	}

	router := httptransport.NewRouter(facade, checker, cfg.AuthToken, logger)
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	go func() {
		logger.Info("http gateway started", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http gateway: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http gateway shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	if err := host.Stop(shutdownTimeout); err != nil {
		logger.Error("engine shutdown", "error", err)
	}

	logger.Info("shut down")
}

func buildSinks(cfg *config.Config, logger *slog.Logger) []notify.Sink {
	var sinks []notify.Sink
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookNotifier(cfg.WebhookURL, logger))
	}
	if cfg.NotifyEmailTo != "" {
		sender := notify.NewEmailSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
		sinks = append(sinks, notify.NewEmailNotifier(sender, cfg.NotifyEmailTo, logger))
	}
	return sinks
}

func newLogger(format string, level slog.Level, logDir string) *slog.Logger {
	engineLog := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "cronhostd.log"),
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     30,
	}
	out := io.MultiWriter(os.Stdout, engineLog)

	var inner slog.Handler
	if format == "json" {
		inner = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		inner = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    true,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
