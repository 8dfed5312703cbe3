package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; WishlistBot/1.0)"
	DefaultTimeout   = 20 * time.Second
)

type FetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RelayURL, when set, is a prefix the query-escaped target URL is
	// appended to, e.g. "https://api.allorigins.win/raw?url=".
	RelayURL string
}

func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
	}
}

// HTTPFetcher fetches pages with a plain GET. No JavaScript is executed.
type HTTPFetcher struct {
	client   *resty.Client
	relayURL string
	logger   *slog.Logger
}

func NewHTTPFetcher(opts FetcherOptions, logger *slog.Logger) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	return &HTTPFetcher{
		client:   client,
		relayURL: opts.RelayURL,
		logger:   logger.With("component", "http_fetcher"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	requestURL := f.requestURL(target)

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		Get(requestURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	f.logger.Debug("fetched page",
		"url", target,
		"status", resp.StatusCode(),
		"bytes", len(resp.Body()),
		"duration", time.Since(start),
	)

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: %s", ErrFetchFailed, resp.Status())
	}

	return resp.String(), nil
}

func (f *HTTPFetcher) requestURL(target string) string {
	if f.relayURL == "" {
		return target
	}
	return f.relayURL + url.QueryEscape(target)
}
