package pricing

import (
	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// Summarize aggregates a history sorted by checked_at ascending. It returns
// nil for an empty history.
func Summarize(history []models.PriceHistoryRecord) *models.PriceSummary {
	if len(history) == 0 {
		return nil
	}

	first := history[0]
	last := history[len(history)-1]

	lowest := first.Price
	highest := first.Price
	sum := decimal.Zero
	for _, h := range history {
		lowest = min(lowest, h.Price)
		highest = max(highest, h.Price)
		sum = sum.Add(decimal.NewFromFloat(h.Price))
	}

	average := sum.Div(decimal.NewFromInt(int64(len(history))))
	totalChange := decimal.NewFromFloat(last.Price).Sub(decimal.NewFromFloat(first.Price))

	return &models.PriceSummary{
		Current:      last.Price,
		Lowest:       lowest,
		Highest:      highest,
		Average:      average.InexactFloat64(),
		TotalChange:  totalChange.InexactFloat64(),
		DataPoints:   len(history),
		FirstChecked: first.CheckedAt,
		LastChecked:  last.CheckedAt,
	}
}
