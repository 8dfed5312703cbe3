package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/pricing"
)

type ItemSource interface {
	ListStaleItems(ctx context.Context, cutoff time.Time, limit int) ([]models.Item, error)
	MarkAttempted(ctx context.Context, ids []string, at time.Time) error
}

type BatchRunner interface {
	RecheckAllPrices(ctx context.Context, items []models.Item, onProgress pricing.ProgressFunc) ([]models.PriceCheckResult, error)
}

type Config struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

// RunSummary describes one scheduler tick.
type RunSummary struct {
	Checked int
	pricing.BatchOutcome
}

// Scheduler periodically rechecks items whose price has not been checked
// recently. Only one batch runs at a time.
type Scheduler struct {
	items  ItemSource
	runner BatchRunner
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewScheduler(items ItemSource, runner BatchRunner, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Scheduler{
		items:  items,
		runner: runner,
		cfg:    cfg,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
	}
}

// Start runs a batch immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"stale_after", s.cfg.StaleAfter,
		"batch_size", s.cfg.BatchSize)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled recheck failed", "error", err)
	}
}

// RunOnce rechecks one batch of stale items. Every picked item is stamped as
// attempted before the batch runs, so items that never yield a price rotate
// out of the next selections.
func (s *Scheduler) RunOnce(ctx context.Context) (*RunSummary, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg.StaleAfter)

	items, err := s.items.ListStaleItems(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load stale items: %w", err)
	}

	if len(items) == 0 {
		s.logger.Debug("no stale items")
		return &RunSummary{BatchOutcome: pricing.NewBatchOutcome(0, 0)}, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if err := s.items.MarkAttempted(ctx, ids, now); err != nil {
		return nil, fmt.Errorf("failed to mark items attempted: %w", err)
	}

	s.logger.Info("rechecking stale items", "count", len(items))

	results, err := s.runner.RecheckAllPrices(ctx, items, func(completed, total int, result *models.PriceCheckResult) {
		s.logger.Debug("recheck progress",
			"completed", completed,
			"total", total,
			"found_price", result != nil)
	})

	summary := &RunSummary{
		Checked:      len(items),
		BatchOutcome: pricing.NewBatchOutcome(len(items), len(results)),
	}
	if err != nil {
		return summary, err
	}

	s.logger.Info("scheduled recheck finished",
		"outcome", summary.Outcome,
		"message", summary.Message)

	return summary, nil
}
