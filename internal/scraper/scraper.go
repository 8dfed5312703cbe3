package scraper

import (
	"context"
	"errors"

	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/parser"
)

var (
	ErrInvalidURL  = parser.ErrInvalidURL
	ErrFetchFailed = errors.New("failed to fetch URL")
)

// Scraper turns a product URL into a ScrapedProduct. Failures are reported
// in the result rather than returned as errors.
type Scraper interface {
	ScrapeProductURL(ctx context.Context, url string) *models.ScrapedProduct
}

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
