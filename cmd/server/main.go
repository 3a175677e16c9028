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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpHandlers "github.com/JeanGrijp/coachgate/internal/adapters/http/handlers"
	httpMiddleware "github.com/JeanGrijp/coachgate/internal/adapters/http/middleware"
	"github.com/JeanGrijp/coachgate/internal/adapters/metrics"
	memorystorage "github.com/JeanGrijp/coachgate/internal/adapters/storage/memory"
	redisstorage "github.com/JeanGrijp/coachgate/internal/adapters/storage/redis"
	"github.com/JeanGrijp/coachgate/internal/config"
	"github.com/JeanGrijp/coachgate/internal/core/ports"
	"github.com/JeanGrijp/coachgate/internal/core/services"
	"github.com/JeanGrijp/coachgate/internal/logging"
)

const serviceName = "coachgate"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, serviceName, cfg.Gatekeeper.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, pinger, closeFn, err := initStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeFn()

	limiter, err := services.NewRateLimiterService(storage, services.Config{Rule: cfg.RateLimiter.Rule})
	if err != nil {
		logger.Error("failed to create limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	gatekeeper, err := services.NewGatekeeperService(limiter, services.GatekeeperConfig{
		Production:     cfg.Gatekeeper.Production(),
		AllowedOrigins: cfg.Gatekeeper.AllowedOrigins,
		Policy:         cfg.Gatekeeper.Policy,
	})
	if err != nil {
		logger.Error("failed to create gatekeeper", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	m.Register(registry)

	health := httpHandlers.NewHealth(pinger)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(httpMiddleware.RequestID)
	r.Use(httpMiddleware.AccessLog(logger, m, cfg.Gatekeeper.TrustProxyHeaders))
	r.Use(httpMiddleware.NewGatekeeperMiddleware(gatekeeper, httpMiddleware.GatekeeperOptions{
		Logger:            logger,
		Metrics:           m,
		TrustProxyHeaders: cfg.Gatekeeper.TrustProxyHeaders,
	}))

	r.Get("/health", health.Liveness)
	r.Get("/healthz", health.Liveness)
	r.Get("/api/health", health.Liveness)
	r.Get("/readyz", health.Readiness)
	r.Get("/test", httpHandlers.TestHandler)
	r.Get("/api/test", httpHandlers.TestHandler)
	r.Get("/api/status", httpHandlers.StatusHandler(limiter.Rule(), cfg.Gatekeeper.Environment))
	r.Handle("/metrics", metrics.Handler(registry))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("storage", cfg.Storage.Type),
			slog.Bool("production", cfg.Gatekeeper.Production()),
		)
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// initStorage devolve o storage, um Pinger opcional para o readiness e a função de fechamento.
func initStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.Storage, httpHandlers.Pinger, func(), error) {
	switch cfg.Storage.Type {
	case "memory":
		storage := memorystorage.New()
		go storage.RunJanitor(ctx, cfg.RateLimiter.SweepInterval, cfg.RateLimiter.Rule.Window, logger)
		return storage, nil, func() {}, nil
	case "redis":
		storage, err := redisstorage.New(redisstorage.Config{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return storage, storage, func() {
			if err := storage.Close(); err != nil {
				logger.Error("failed to close redis storage", slog.String("error", err.Error()))
			}
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
