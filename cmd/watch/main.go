// Command watch serves live statistics aggregated from the scan-events
// Kafka topic.
//
// It consumes events emitted by running scanners, keeps rolling counters
// and latency percentiles in memory, and exposes them at GET /api/v1/stats
// for dashboards. Graceful shutdown is triggered by SIGINT/SIGTERM.
//
// Usage:
//
//	go run ./cmd/watch [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/overlap-ml/neardup/internal/report"
	"github.com/overlap-ml/neardup/pkg/config"
	"github.com/overlap-ml/neardup/pkg/health"
	"github.com/overlap-ml/neardup/pkg/kafka"
	"github.com/overlap-ml/neardup/pkg/logger"
	"github.com/overlap-ml/neardup/pkg/metrics"
	"github.com/overlap-ml/neardup/pkg/middleware"
	"github.com/overlap-ml/neardup/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting watch service", "port", cfg.Watch.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := report.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ScanEvents, report.HandleEvent(aggregator))

	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()
	slog.Info("scan aggregator started", "topic", cfg.Kafka.Topics.ScanEvents)

	statsHandler := report.NewHandler(aggregator)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	if cfg.Watch.SnapshotInterval > 0 {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, snapshotting disabled", "error", err)
		} else {
			defer pg.Close()
			checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
				if err := pg.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
			go report.NewSnapshotStore(pg).RunSnapshotLoop(ctx, aggregator, cfg.Watch.SnapshotInterval)
		}
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stats", statsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Watch.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Watch.Port),
		Handler:      chain,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Watch.RequestTimeout + time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("watch service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("watch service stopped")
}
