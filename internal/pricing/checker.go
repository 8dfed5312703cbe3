package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/ratelimit"
	"github.com/maltedev/wishlist-tracker/internal/scraper"
	"github.com/shopspring/decimal"
)

// Recorder persists the side effects of a price check atomically.
type Recorder interface {
	RecordPriceCheck(ctx context.Context, write *models.PriceCheckWrite) error
}

type Checker struct {
	scraper  scraper.Scraper
	recorder Recorder
	limiter  ratelimit.RateLimiter
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Checker)

// WithClock overrides the time source used for checked_at stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// WithRateLimiter paces the batch runner between items.
func WithRateLimiter(l ratelimit.RateLimiter) Option {
	return func(c *Checker) {
		c.limiter = l
	}
}

func NewChecker(s scraper.Scraper, recorder Recorder, logger *slog.Logger, opts ...Option) *Checker {
	c := &Checker{
		scraper:  s,
		recorder: recorder,
		limiter:  ratelimit.NewSimpleRateLimiter(0, 0),
		logger:   logger.With("component", "price_checker"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecheckItemPrice scrapes the item's URL and reconciles the result with the
// stored price. It returns (nil, nil) when no price could be determined, in
// which case nothing is written.
func (c *Checker) RecheckItemPrice(ctx context.Context, item *models.Item) (*models.PriceCheckResult, error) {
	scraped := c.scraper.ScrapeProductURL(ctx, item.URL)
	if !scraped.HasPrice() {
		c.logger.Info("no price found",
			"item_id", item.ID,
			"success", scraped.Success,
			"error", scraped.Error,
		)
		return nil, nil
	}

	// Stored prices are NUMERIC(12,2), so compare at cent precision.
	newPrice := RoundCents(*scraped.Price)
	previous := item.CurrentPrice
	checkedAt := c.now()
	priceChanged := previous == nil || RoundCents(*previous) != newPrice

	write := &models.PriceCheckWrite{
		ItemID:        item.ID,
		PreviousPrice: previous,
		Availability: models.AvailabilityHistoryRecord{
			ID:          uuid.NewString(),
			ItemID:      item.ID,
			IsAvailable: true,
			CheckedAt:   checkedAt,
		},
		ItemUpdate: models.ItemPriceUpdate{
			CurrentPrice:  newPrice,
			Currency:      scraped.Currency,
			IsAvailable:   true,
			LastCheckedAt: checkedAt,
		},
	}
	if priceChanged {
		write.PriceHistory = &models.PriceHistoryRecord{
			ID:        uuid.NewString(),
			ItemID:    item.ID,
			Price:     newPrice,
			Currency:  scraped.Currency,
			CheckedAt: checkedAt,
		}
	}

	if err := c.recorder.RecordPriceCheck(ctx, write); err != nil {
		return nil, fmt.Errorf("failed to record price check: %w", err)
	}

	change, direction := PriceDelta(previous, newPrice)

	c.logger.Info("price checked",
		"item_id", item.ID,
		"price", newPrice,
		"currency", scraped.Currency,
		"changed", priceChanged,
		"direction", direction,
	)

	return &models.PriceCheckResult{
		ItemID:         item.ID,
		Price:          newPrice,
		Currency:       scraped.Currency,
		IsAvailable:    true,
		CheckedAt:      checkedAt,
		PreviousPrice:  previous,
		PriceChange:    change,
		PriceDirection: direction,
	}, nil
}

// RoundCents rounds a price half away from zero to two decimals.
func RoundCents(price float64) float64 {
	return decimal.NewFromFloat(price).Round(2).InexactFloat64()
}

// PriceDelta returns current minus previous and its direction. Both are
// empty when there is no previous price.
func PriceDelta(previous *float64, current float64) (*float64, models.PriceDirection) {
	if previous == nil {
		return nil, models.PriceDirectionNone
	}

	delta := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(*previous))
	change := delta.InexactFloat64()

	switch delta.Sign() {
	case -1:
		return &change, models.PriceDirectionDown
	case 1:
		return &change, models.PriceDirectionUp
	default:
		return &change, models.PriceDirectionSame
	}
}
