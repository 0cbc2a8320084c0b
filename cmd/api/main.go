// API entrypoint: loads configuration, wires dependencies and serves HTTP.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusvote/campusvote/internal/app/audit"
	"github.com/campusvote/campusvote/internal/app/ballot"
	"github.com/campusvote/campusvote/internal/app/elections"
	"github.com/campusvote/campusvote/internal/app/httpapi"
	"github.com/campusvote/campusvote/internal/app/identity"
	"github.com/campusvote/campusvote/internal/app/tally"
	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/clock"
	"github.com/campusvote/campusvote/internal/platform/config"
	"github.com/campusvote/campusvote/internal/platform/health"
	"github.com/campusvote/campusvote/internal/platform/ids"
	"github.com/campusvote/campusvote/internal/platform/logger"
	"github.com/campusvote/campusvote/internal/platform/migrations"
	postgresstorage "github.com/campusvote/campusvote/internal/platform/storage/postgres"
	redisstorage "github.com/campusvote/campusvote/internal/platform/storage/redis"
	"github.com/campusvote/campusvote/internal/platform/throttle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// One shared GORM handle for the whole process, so the pool and the
	// readiness probe look at the same connection.
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
		// Automatic migrations stay opt-out for production deploys.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("auto migration failed", "err", err)
		}
	}

	// Redis carries sessions, live counters and the ballot feed.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	principalRepo := postgresstorage.NewPrincipalRepository(db)
	electionRepo := postgresstorage.NewElectionRepository(db)
	candidateRepo := postgresstorage.NewCandidateRepository(db)
	voteRepo := postgresstorage.NewVoteRepository(db)
	auditRepo := postgresstorage.NewAuditRepository(db)
	counters := redisstorage.NewCounter(redisClient, cfg.CounterKeyPrefix)
	feed := redisstorage.NewFeed(redisClient, cfg.FeedChannelPrefix)
	sessions := redisstorage.NewSessions(redisClient, cfg.SessionKeyPrefix)
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()

	var loginThrottle domain.LoginThrottle = throttle.NewNoop()
	if cfg.LoginThrottleEnabled {
		window := time.Duration(cfg.LoginThrottleWindowSeconds) * time.Second
		loginThrottle = throttle.NewRedisLimiter(redisClient, cfg.LoginThrottleMaxAttempts, window, cfg.LoginThrottleKeyPrefix)
	}

	// The audit service doubles as the trail every other service writes to
	// and the admin-only read surface behind /audit.
	auditSvc := audit.NewService(auditRepo, clockSystem, idGen)
	identitySvc := identity.NewService(principalRepo, sessions, loginThrottle, auditSvc, clockSystem, idGen, cfg.SessionTTL)
	electionSvc := elections.NewService(electionRepo, candidateRepo, voteRepo, auditSvc, clockSystem, idGen)
	ballotSvc := ballot.NewService(electionRepo, candidateRepo, voteRepo, feed, auditSvc, clockSystem, idGen)
	tallySvc := tally.NewService(electionRepo, candidateRepo, voteRepo, counters)

	if cfg.BootstrapAdminEmail != "" {
		if err := identitySvc.EnsureAdmin(ctx, cfg.BootstrapAdminName, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			logger.Fatal("bootstrap admin failed", "err", err)
		}
	}

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	// HTTP exposes the API plus the probes and metrics Prometheus scrapes.
	api := httpapi.New(identitySvc, electionSvc, ballotSvc, tallySvc, auditSvc, feed, logger.L())
	api.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
