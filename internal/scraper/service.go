package scraper

import (
	"context"
	"log/slog"

	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/parser"
)

// Service combines a Fetcher and a Parser into a single scrape operation.
type Service struct {
	fetcher Fetcher
	parser  parser.Parser
	logger  *slog.Logger
}

func NewService(fetcher Fetcher, p parser.Parser, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		parser:  p,
		logger:  logger.With("component", "scraper"),
	}
}

// ScrapeProductURL validates the URL, fetches the page and extracts product
// data. It does not retry. An invalid URL fails without a network request;
// a fetch failure still reports the merchant derived from the URL.
func (s *Service) ScrapeProductURL(ctx context.Context, rawURL string) *models.ScrapedProduct {
	if _, err := parser.ParseURL(rawURL); err != nil {
		s.logger.Warn("rejected invalid url", "url", rawURL)
		return models.NewFailedScrape(nil, ErrInvalidURL)
	}

	html, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.logger.Warn("scrape failed", "url", rawURL, "error", err)
		return models.NewFailedScrape(parser.ExtractMerchant(rawURL), err)
	}

	extracted := s.parser.Parse(html, rawURL)

	s.logger.Info("scraped product",
		"url", rawURL,
		"hasTitle", extracted.Title != nil,
		"hasPrice", extracted.Price != nil,
		"hasImage", extracted.ImageURL != nil,
	)

	return &models.ScrapedProduct{
		Title:    extracted.Title,
		Price:    extracted.Price,
		Currency: extracted.Currency,
		ImageURL: extracted.ImageURL,
		Merchant: extracted.Merchant,
		Success:  true,
	}
}
