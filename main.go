package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"modelserve/config"
	"modelserve/db"
	qhttp "modelserve/http"
	"modelserve/inference"
	"modelserve/logging"
	"modelserve/ml"
	"modelserve/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "optional YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Build logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Model loader
	metrics := monitoring.NewMetricsCollector()
	loader := buildLoader(ctx, cfg, metrics, logger)

	// 4. Optional audit log and event stream
	opts := []qhttp.Option{qhttp.WithMetrics(metrics)}
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to open audit database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer store.Close()
		opts = append(opts, qhttp.WithRecorder(store))
		logger.Info("prediction audit enabled", zap.String("path", cfg.Database.Path))
	}
	if cfg.Monitoring.EnableStream {
		hub := monitoring.NewHub(logger)
		go hub.Run(ctx)
		metrics.RegisterGauge("stream_clients", "Connected prediction stream clients", func() float64 {
			return float64(hub.ClientCount())
		})
		opts = append(opts, qhttp.WithStream(hub))
	}

	// 5. Start HTTP server
	service := inference.NewService(loader, logger)
	api := qhttp.NewAPI(service, config.NewEnvSource(cfg.Defaults()), logger, opts...)
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, api, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	logger.Info("model server ready",
		zap.String("model_path", cfg.Model.Path),
		zap.String("model_version", cfg.Model.Version),
		zap.Bool("model_cache", !cfg.Model.DisableCache),
	)

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

func buildLoader(ctx context.Context, cfg *config.Config, metrics *monitoring.MetricsCollector, logger *zap.Logger) ml.Loader {
	if cfg.Model.DisableCache {
		return ml.NewFileLoader(logger)
	}
	loader, err := ml.NewCachedLoader(cfg.Model.CacheSize, logger)
	if err != nil {
		logger.Fatal("failed to create model cache", zap.Error(err))
	}
	metrics.RegisterGauge("model_cache_hits", "Predictor cache hits", func() float64 { return float64(loader.Stats().Hits) })
	metrics.RegisterGauge("model_cache_misses", "Predictor cache misses", func() float64 { return float64(loader.Stats().Misses) })
	metrics.RegisterGauge("model_cache_reloads", "Predictor reloads after artifact change", func() float64 { return float64(loader.Stats().Reloads) })

	if cfg.Model.Watch {
		go func() {
			if err := loader.Watch(ctx, cfg.Model.Path); err != nil {
				// 仍靠mtime检查保持缓存有效
				logger.Warn("model watcher disabled", zap.String("path", cfg.Model.Path), zap.Error(err))
			}
		}()
	}
	return loader
}
