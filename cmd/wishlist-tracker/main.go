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

	"github.com/maltedev/wishlist-tracker/internal/api"
	"github.com/maltedev/wishlist-tracker/internal/config"
	"github.com/maltedev/wishlist-tracker/internal/database"
	"github.com/maltedev/wishlist-tracker/internal/events"
	"github.com/maltedev/wishlist-tracker/internal/jobs"
	"github.com/maltedev/wishlist-tracker/internal/parser"
	"github.com/maltedev/wishlist-tracker/internal/pricing"
	"github.com/maltedev/wishlist-tracker/internal/ratelimit"
	"github.com/maltedev/wishlist-tracker/internal/scraper"
	"github.com/maltedev/wishlist-tracker/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	outboxRepo := database.NewOutboxRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	relay := database.NewRelay(outboxRepo, redisClient, log, database.RelayConfig{
		PollInterval: cfg.Relay.PollInterval,
		BatchSize:    cfg.Relay.BatchSize,
	})
	if cfg.Relay.Enabled {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay stopped with error", "error", err)
			}
		}()
	}

	fetcher := scraper.NewHTTPFetcher(scraper.FetcherOptions{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.Timeout,
		RelayURL:  cfg.Scraper.RelayURL,
	}, log)
	scraperService := scraper.NewService(fetcher, parser.NewProductParser(), log)

	pauseMax := max(cfg.Scraper.BatchPauseMax, cfg.Scraper.BatchPause)
	checker := pricing.NewChecker(scraperService, events.NewPublisher(db, log), log,
		pricing.WithRateLimiter(ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.BatchPause, pauseMax)))

	if cfg.Scheduler.Enabled {
		scheduler := jobs.NewScheduler(db, checker, jobs.Config{
			Interval:   cfg.Scheduler.Interval,
			StaleAfter: cfg.Scheduler.StaleAfter,
			BatchSize:  cfg.Scheduler.BatchSize,
		}, log)
		go scheduler.Start(ctx)
	}

	handlers := api.NewHandlers(scraperService, checker, db, relay, log)
	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(handlers, api.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: cfg.Server.WriteTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	dbCfg := database.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Name,
		SSLMode:  cfg.SSLMode,
		MaxConns: cfg.MaxConns,
	}
	if cfg.URL != "" {
		return database.Open(ctx, cfg.URL, dbCfg)
	}
	return database.New(ctx, dbCfg)
}
