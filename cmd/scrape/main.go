package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/wishlist-tracker/internal/config"
	"github.com/maltedev/wishlist-tracker/internal/database"
	"github.com/maltedev/wishlist-tracker/internal/events"
	"github.com/maltedev/wishlist-tracker/internal/jobs"
	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/parser"
	"github.com/maltedev/wishlist-tracker/internal/pricing"
	"github.com/maltedev/wishlist-tracker/internal/ratelimit"
	"github.com/maltedev/wishlist-tracker/internal/scraper"
	"github.com/maltedev/wishlist-tracker/pkg/logger"
)

func main() {
	var (
		urls    = flag.String("urls", "", "Comma-separated list of product URLs to scrape")
		recheck = flag.Bool("recheck", false, "Recheck stale tracked items instead of scraping URLs")
		limit   = flag.Int("limit", 0, "Maximum number of stale items to recheck (default SCHEDULER_BATCH_SIZE)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(os.Stderr, cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	fetcher := scraper.NewHTTPFetcher(scraper.FetcherOptions{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.Timeout,
		RelayURL:  cfg.Scraper.RelayURL,
	}, logger)
	s := scraper.NewService(fetcher, parser.NewProductParser(), logger)

	if !*recheck {
		targets := splitURLs(*urls)
		if len(targets) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: scrape -urls=URL[,URL...] | scrape -recheck [-limit=N]")
			os.Exit(2)
		}

		if err := scrapeURLs(ctx, s, targets, os.Stdout, logger); err != nil {
			log.Fatalf("Failed to encode output: %v", err)
		}
		return
	}

	dbCfg := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	}
	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.Open(ctx, cfg.Database.URL, dbCfg)
	} else {
		db, err = database.New(ctx, dbCfg)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pauseMax := max(cfg.Scraper.BatchPauseMax, cfg.Scraper.BatchPause)
	checker := pricing.NewChecker(s, events.NewPublisher(db, logger), logger,
		pricing.WithRateLimiter(ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.BatchPause, pauseMax)))

	batchSize := cfg.Scheduler.BatchSize
	if *limit > 0 {
		batchSize = *limit
	}

	scheduler := jobs.NewScheduler(db, checker, jobs.Config{
		StaleAfter: cfg.Scheduler.StaleAfter,
		BatchSize:  batchSize,
	}, logger)

	summary, err := scheduler.RunOnce(ctx)
	if summary != nil {
		if err := writeJSON(os.Stdout, summary); err != nil {
			log.Fatalf("Failed to encode output: %v", err)
		}
	}
	if err != nil {
		log.Fatalf("Recheck failed: %v", err)
	}
}

func splitURLs(raw string) []string {
	var out []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// newLogger writes to stderr so stdout carries only the JSON result.
func newLogger(stderr io.Writer, cfg config.LoggingConfig) *slog.Logger {
	return logger.NewWithWriter(stderr, cfg.Level, cfg.Format)
}

func scrapeURLs(ctx context.Context, s scraper.Scraper, targets []string, stdout io.Writer, logger *slog.Logger) error {
	results := make([]*models.ScrapedProduct, 0, len(targets))
	for _, target := range targets {
		result := s.ScrapeProductURL(ctx, target)
		if !result.Success {
			logger.Warn("scrape failed", "url", target, "error", result.Error)
		}
		results = append(results, result)
	}
	return writeJSON(stdout, results)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
