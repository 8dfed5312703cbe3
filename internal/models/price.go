package models

import (
	"encoding/json"
	"time"
)

// PriceHistoryRecord is an append-only price observation.
type PriceHistoryRecord struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	CheckedAt time.Time `json:"checked_at"`
}

// AvailabilityHistoryRecord is an append-only availability observation.
type AvailabilityHistoryRecord struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	IsAvailable bool      `json:"is_available"`
	CheckedAt   time.Time `json:"checked_at"`
}

type PriceDirection string

const (
	PriceDirectionNone PriceDirection = ""
	PriceDirectionUp   PriceDirection = "up"
	PriceDirectionDown PriceDirection = "down"
	PriceDirectionSame PriceDirection = "same"
)

// MarshalJSON encodes the zero direction as null.
func (d PriceDirection) MarshalJSON() ([]byte, error) {
	if d == PriceDirectionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *PriceDirection) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = PriceDirectionNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = PriceDirection(s)
	return nil
}

// PriceCheckResult reconciles a fresh scrape against the stored item.
type PriceCheckResult struct {
	ItemID         string         `json:"item_id"`
	Price          float64        `json:"price"`
	Currency       string         `json:"currency"`
	IsAvailable    bool           `json:"is_available"`
	CheckedAt      time.Time      `json:"checked_at"`
	PreviousPrice  *float64       `json:"previous_price"`
	PriceChange    *float64       `json:"price_change"`
	PriceDirection PriceDirection `json:"price_direction"`
}

// PriceCheckWrite groups the persistence side effects of one price check.
// PriceHistory is nil when the price did not change.
type PriceCheckWrite struct {
	ItemID        string
	PreviousPrice *float64
	PriceHistory  *PriceHistoryRecord
	Availability  AvailabilityHistoryRecord
	ItemUpdate    ItemPriceUpdate
}

// PriceSummary aggregates a chronologically ascending price history.
type PriceSummary struct {
	Current      float64   `json:"current"`
	Lowest       float64   `json:"lowest"`
	Highest      float64   `json:"highest"`
	Average      float64   `json:"average"`
	TotalChange  float64   `json:"total_change"`
	DataPoints   int       `json:"data_points"`
	FirstChecked time.Time `json:"first_checked"`
	LastChecked  time.Time `json:"last_checked"`
}
