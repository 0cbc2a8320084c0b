// Projector worker: follows the ballot feed, keeps the Redis live counters
// current and periodically reconciles them against the Postgres ledger.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusvote/campusvote/internal/app/worker"
	"github.com/campusvote/campusvote/internal/platform/config"
	"github.com/campusvote/campusvote/internal/platform/health"
	"github.com/campusvote/campusvote/internal/platform/logger"
	"github.com/campusvote/campusvote/internal/platform/migrations"
	postgresstorage "github.com/campusvote/campusvote/internal/platform/storage/postgres"
	redisstorage "github.com/campusvote/campusvote/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// Same GORM handle and models as the API, so schema never diverges.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connection failed", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("unwrapping sql.DB failed", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("auto migration failed", "err", err)
		}
	}

	// Redis is mandatory here: both the feed and the counters live on it.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	counters := redisstorage.NewCounter(redisClient, cfg.CounterKeyPrefix)
	feed := redisstorage.NewFeed(redisClient, cfg.FeedChannelPrefix)
	checker := health.NewChecker(sqlDB, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			// Observability stays up while the main goroutine follows the feed.
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics listening", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("worker metrics server error", "err", err)
			}
		}()
	}

	electionRepo := postgresstorage.NewElectionRepository(db)
	candidateRepo := postgresstorage.NewCandidateRepository(db)
	voteRepo := postgresstorage.NewVoteRepository(db)
	projector := worker.NewProjector(feed, counters, electionRepo, candidateRepo, voteRepo, cfg.ReconcileInterval)

	logger.Info("worker started, following ballot feed", "reconcile_interval", cfg.ReconcileInterval)
	err = projector.Run(ctx)

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker stopped with error", "err", err)
	}

	logger.Info("worker stopped")
}
