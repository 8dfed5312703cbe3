package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/wishlist-tracker/internal/activity"
	"github.com/maltedev/wishlist-tracker/internal/database"
	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/parser"
	"github.com/maltedev/wishlist-tracker/internal/pricing"
	"github.com/maltedev/wishlist-tracker/internal/scraper"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 500

	pendingWarnThreshold     = 1000
	deadLetterErrorThreshold = 100
)

var errURLRequired = errors.New("URL is required")

type PriceChecker interface {
	RecheckItemPrice(ctx context.Context, item *models.Item) (*models.PriceCheckResult, error)
	RecheckAllPrices(ctx context.Context, items []models.Item, onProgress pricing.ProgressFunc) ([]models.PriceCheckResult, error)
}

// Store is the read side the handlers need from the database.
type Store interface {
	GetItem(ctx context.Context, id string) (*models.Item, error)
	GetList(ctx context.Context, id string) (*models.List, error)
	ListItemsByList(ctx context.Context, listID string) ([]models.Item, error)
	ListPriceHistory(ctx context.Context, itemID string) ([]models.PriceHistoryRecord, error)
	ListRecentPriceRows(ctx context.Context, limit int) ([]models.PriceRow, error)
	ListRecentAvailabilityRows(ctx context.Context, limit int) ([]models.AvailabilityRow, error)
	ListNamesByID(ctx context.Context) (map[string]string, error)
}

type OutboxHealth interface {
	PendingCount(ctx context.Context) (int64, error)
	DeadLetterCount(ctx context.Context) (int64, error)
}

type Handlers struct {
	scraper scraper.Scraper
	checker PriceChecker
	store   Store
	outbox  OutboxHealth
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandlers(s scraper.Scraper, checker PriceChecker, store Store, outbox OutboxHealth, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper: s,
		checker: checker,
		store:   store,
		outbox:  outbox,
		logger:  logger.With("component", "api"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type ScrapeRequest struct {
	URL string `json:"url"`
}

// Scrape fetches and extracts a product page. Failures keep the
// ScrapedProduct shape so clients can read merchant and error together.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		h.respondJSON(w, http.StatusBadRequest, models.NewFailedScrape(nil, errURLRequired))
		return
	}

	result := h.scraper.ScrapeProductURL(r.Context(), req.URL)
	if !result.Success {
		status := http.StatusInternalServerError
		if result.Error == scraper.ErrInvalidURL.Error() {
			status = http.StatusBadRequest
		}
		h.respondJSON(w, status, result)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

type ProductURLResponse struct {
	URL           string `json:"url"`
	LikelyProduct bool   `json:"likely_product"`
}

func (h *Handlers) CheckProductURL(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	h.respondJSON(w, http.StatusOK, ProductURLResponse{
		URL:           rawURL,
		LikelyProduct: parser.IsLikelyProductURL(rawURL),
	})
}

func (h *Handlers) RecheckItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	result, err := h.checker.RecheckItemPrice(r.Context(), item)
	if err != nil {
		h.logger.Error("failed to recheck item", "item_id", item.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to recheck price")
		return
	}
	if result == nil {
		h.respondError(w, http.StatusUnprocessableEntity, "could not determine price")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

type ListRecheckResponse struct {
	Results []models.PriceCheckResult `json:"results"`
	pricing.BatchOutcome
}

func (h *Handlers) RecheckList(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "listID")

	if _, err := h.store.GetList(r.Context(), listID); err != nil {
		h.respondStoreError(w, err, "list not found", "failed to load list")
		return
	}

	items, err := h.store.ListItemsByList(r.Context(), listID)
	if err != nil {
		h.logger.Error("failed to list items", "list_id", listID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load items")
		return
	}

	results, err := h.checker.RecheckAllPrices(r.Context(), items, nil)
	if err != nil {
		h.logger.Warn("list recheck interrupted", "list_id", listID, "error", err)
	}
	if results == nil {
		results = []models.PriceCheckResult{}
	}

	h.respondJSON(w, http.StatusOK, ListRecheckResponse{
		Results:      results,
		BatchOutcome: pricing.NewBatchOutcome(len(items), len(results)),
	})
}

func (h *Handlers) PriceHistory(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	history, err := h.store.ListPriceHistory(r.Context(), item.ID)
	if err != nil {
		h.logger.Error("failed to get price history", "item_id", item.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get price history")
		return
	}

	h.respondJSON(w, http.StatusOK, history)
}

func (h *Handlers) PriceSummary(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	history, err := h.store.ListPriceHistory(r.Context(), item.ID)
	if err != nil {
		h.logger.Error("failed to get price history", "item_id", item.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get price history")
		return
	}

	summary := pricing.Summarize(history)
	if summary == nil {
		h.respondError(w, http.StatusNotFound, "no price history")
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

type ActivityResponse struct {
	Groups    []activity.Group `json:"groups"`
	Merchants []string         `json:"merchants"`
}

// Activity rebuilds the timeline from history rows, filters it and groups it.
func (h *Handlers) Activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	groupBy, err := activity.ParseGroupBy(q.Get("group_by"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "group_by must be day, merchant or collection")
		return
	}

	limit := defaultActivityLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	ctx := r.Context()
	priceRows, err := h.store.ListRecentPriceRows(ctx, limit)
	if err != nil {
		h.logger.Error("failed to load price rows", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	availabilityRows, err := h.store.ListRecentAvailabilityRows(ctx, limit)
	if err != nil {
		h.logger.Error("failed to load availability rows", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	listNames, err := h.store.ListNamesByID(ctx)
	if err != nil {
		h.logger.Error("failed to load list names", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}

	events := activity.BuildEvents(priceRows, availabilityRows, listNames)
	filter := activity.Filter{
		Type:     q.Get("type"),
		ListID:   q.Get("list"),
		Merchant: q.Get("merchant"),
	}

	groups, err := activity.GroupEvents(filter.Apply(events), groupBy, h.now())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, ActivityResponse{
		Groups:    groups,
		Merchants: activity.MerchantOptions(events),
	})
}

// Health reports outbox backlog. Many dead letters make the service unhealthy.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	pendingCount, err := h.outbox.PendingCount(r.Context())
	if err != nil {
		h.logger.Warn("failed to count pending events", "error", err)
	}
	deadLetterCount, err := h.outbox.DeadLetterCount(r.Context())
	if err != nil {
		h.logger.Warn("failed to count dead letter events", "error", err)
	}

	health := map[string]any{
		"status": "ok",
		"outbox": map[string]int64{
			"pending":     pendingCount,
			"dead_letter": deadLetterCount,
		},
	}

	status := http.StatusOK
	if pendingCount > pendingWarnThreshold {
		health["status"] = "warning"
		health["message"] = "High number of pending outbox events"
	}
	if deadLetterCount > deadLetterErrorThreshold {
		health["status"] = "error"
		health["message"] = "High number of dead letter events"
		status = http.StatusServiceUnavailable
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) loadItem(w http.ResponseWriter, r *http.Request) (*models.Item, bool) {
	item, err := h.store.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.respondStoreError(w, err, "item not found", "failed to load item")
		return nil, false
	}
	return item, true
}

func (h *Handlers) respondStoreError(w http.ResponseWriter, err error, notFound, internal string) {
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, notFound)
		return
	}
	h.logger.Error(internal, "error", err)
	h.respondError(w, http.StatusInternalServerError, internal)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
