package pricing

import (
	"context"
	"fmt"

	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/ratelimit"
)

// ProgressFunc is called after every item with the number of items
// processed so far. result is nil when the item produced no price or failed.
type ProgressFunc func(completed, total int, result *models.PriceCheckResult)

// RecheckAllPrices rechecks items one at a time in input order. Items that
// error or yield no price are left out of the returned slice. When ctx is
// cancelled the results gathered so far are returned with ctx.Err().
func (c *Checker) RecheckAllPrices(ctx context.Context, items []models.Item, onProgress ProgressFunc) ([]models.PriceCheckResult, error) {
	results := make([]models.PriceCheckResult, 0, len(items))
	total := len(items)

	for i := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return results, err
		}

		item := &items[i]
		result, err := c.RecheckItemPrice(ctx, item)
		if err != nil {
			c.logger.Error("failed to recheck item", "item_id", item.ID, "error", err)
		}
		if result != nil {
			results = append(results, *result)
		}
		c.feedback(err == nil && result != nil)

		if onProgress != nil {
			onProgress(i+1, total, result)
		}
	}

	c.logger.Info("batch recheck finished", "total", total, "succeeded", len(results))
	return results, nil
}

func (c *Checker) feedback(ok bool) {
	fb, isFeedback := c.limiter.(ratelimit.Feedback)
	if !isFeedback {
		return
	}
	if ok {
		fb.RecordSuccess()
	} else {
		fb.RecordError()
	}
}

type Outcome string

const (
	OutcomeAllSucceeded Outcome = "all_succeeded"
	OutcomePartial      Outcome = "partial"
	OutcomeAllFailed    Outcome = "all_failed"
)

// BatchOutcome summarizes a batch run for display.
type BatchOutcome struct {
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Outcome   Outcome `json:"outcome"`
	Message   string  `json:"message"`
}

func NewBatchOutcome(total, succeeded int) BatchOutcome {
	failed := max(total-succeeded, 0)

	outcome := OutcomePartial
	switch {
	case failed == 0:
		outcome = OutcomeAllSucceeded
	case succeeded == 0:
		outcome = OutcomeAllFailed
	}

	return BatchOutcome{
		Succeeded: succeeded,
		Failed:    failed,
		Outcome:   outcome,
		Message:   fmt.Sprintf("%d succeeded, %d failed", succeeded, failed),
	}
}
