package activity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maltedev/wishlist-tracker/internal/models"
)

const (
	UnknownItemTitle = "Unknown item"
	UnassignedList   = "Unassigned"
)

// BuildEvents merges price and availability rows into one timeline sorted
// by CheckedAt, newest first. Rows with equal timestamps keep their input
// order, price rows before availability rows.
func BuildEvents(priceRows []models.PriceRow, availabilityRows []models.AvailabilityRow, listNameByID map[string]string) []models.ActivityEvent {
	events := make([]models.ActivityEvent, 0, len(priceRows)+len(availabilityRows))

	for _, row := range priceRows {
		event := baseEvent(row.Items.Item, listNameByID)
		event.ID = "price-" + row.ID
		event.Type = models.ActivityTypePrice
		event.CheckedAt = row.CheckedAt
		event.Message = "Price checked at " + FormatPrice(row.Price, row.Currency)
		event.Tone = models.ToneNeutral
		events = append(events, event)
	}

	for _, row := range availabilityRows {
		event := baseEvent(row.Items.Item, listNameByID)
		event.ID = "availability-" + row.ID
		event.Type = models.ActivityTypeAvailability
		event.CheckedAt = row.CheckedAt
		if row.IsAvailable {
			event.Message = "Item is in stock"
			event.Tone = models.ToneGood
		} else {
			event.Message = "Item is out of stock"
			event.Tone = models.ToneBad
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CheckedAt.After(events[j].CheckedAt)
	})

	return events
}

func baseEvent(item *models.JoinedItem, listNameByID map[string]string) models.ActivityEvent {
	event := models.ActivityEvent{
		ItemTitle: UnknownItemTitle,
		ListName:  UnassignedList,
	}
	if item == nil {
		return event
	}

	event.ItemID = item.ID
	event.Merchant = nonEmpty(item.Merchant)
	if item.Title != nil && *item.Title != "" {
		event.ItemTitle = *item.Title
	}
	if listID := nonEmpty(item.ListID); listID != nil {
		event.ListID = listID
		if name, ok := listNameByID[*listID]; ok {
			event.ListName = name
		}
	}
	return event
}

// FormatPrice renders USD (or a missing currency) as "$12.34" and every
// other currency as "EUR 12.34".
func FormatPrice(price float64, currency *string) string {
	if currency == nil || *currency == "" || *currency == models.DefaultCurrency {
		return fmt.Sprintf("$%.2f", price)
	}
	return fmt.Sprintf("%s %.2f", strings.ToUpper(*currency), price)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
