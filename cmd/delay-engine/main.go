package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flightops/delay-engine/internal/api"
	"github.com/flightops/delay-engine/internal/cache"
	"github.com/flightops/delay-engine/internal/config"
	"github.com/flightops/delay-engine/internal/metrics"
	"github.com/flightops/delay-engine/internal/registry"
	"github.com/flightops/delay-engine/internal/services"
	"github.com/flightops/delay-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting delay-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	var source services.ArtifactSource
	if cfg.Registry.BaseURL != "" {
		source = registry.NewClient(
			cfg.Registry.BaseURL,
			cfg.Registry.ModelsPath,
			cfg.Registry.Timeout,
			cacheProvider,
			cfg.Registry.ArtifactTTL,
		)
	}

	svc := services.NewPredictionService(logger, source, cfg.Model.Name)
	metrics.SetModelTrained(false)

	// Startup model load: registry first, local artifact as fallback. Any
	// failure leaves the untrained all-zero default serving rather than
	// refusing to start.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	installModel(startupCtx, logger, svc, cfg)
	cancelStartup()

	server, err := api.NewServer(cfg.Server, svc, logger)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("prediction API listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("delay-engine stopped")
}

func installModel(ctx context.Context, logger *slog.Logger, svc *services.PredictionService, cfg *config.Config) {
	if cfg.Registry.BaseURL != "" {
		version, err := svc.Reload(ctx)
		if err == nil {
			logger.Info("serving registry model", slog.String("version", version))
			return
		}
		logger.Warn("registry model load failed", slog.Any("error", err))
	}

	if cfg.Model.Path != "" {
		err := svc.LoadLocal(cfg.Model.Path)
		if err == nil {
			return
		}
		logger.Warn("local model load failed",
			slog.String("path", cfg.Model.Path), slog.Any("error", err))
	}

	logger.Warn("no model installed, serving untrained default predictions")
}
