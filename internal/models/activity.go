package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type ActivityType string

const (
	ActivityTypePrice        ActivityType = "price"
	ActivityTypeAvailability ActivityType = "availability"
)

type Tone string

const (
	ToneGood    Tone = "good"
	ToneBad     Tone = "bad"
	ToneNeutral Tone = "neutral"
)

// ActivityEvent is a derived, read-only timeline entry. It is rebuilt from
// the history tables on every read.
type ActivityEvent struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	CheckedAt time.Time    `json:"checkedAt"`
	ItemID    *string      `json:"itemId"`
	ListID    *string      `json:"listId"`
	Merchant  *string      `json:"merchant"`
	ItemTitle string       `json:"itemTitle"`
	ListName  string       `json:"listName"`
	Message   string       `json:"message"`
	Tone      Tone         `json:"tone"`
}

// JoinedItem is the denormalized item reference carried by history rows.
type JoinedItem struct {
	ID       *string `json:"id,omitempty"`
	Title    *string `json:"title,omitempty"`
	ListID   *string `json:"list_id,omitempty"`
	Merchant *string `json:"merchant,omitempty"`
}

// JoinedItemRef holds an optional joined item. When decoded from JSON it
// accepts null, a single object, or an array (the first element wins and an
// empty array means no item).
type JoinedItemRef struct {
	Item *JoinedItem
}

func NewJoinedItemRef(item *JoinedItem) JoinedItemRef {
	return JoinedItemRef{Item: item}
}

func (r *JoinedItemRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.Item = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []*JoinedItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("failed to decode joined item list: %w", err)
		}
		if len(items) == 0 {
			r.Item = nil
			return nil
		}
		r.Item = items[0]
	case '{':
		var item JoinedItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return fmt.Errorf("failed to decode joined item: %w", err)
		}
		r.Item = &item
	default:
		return fmt.Errorf("unexpected joined item payload: %s", string(trimmed))
	}
	return nil
}

func (r JoinedItemRef) MarshalJSON() ([]byte, error) {
	if r.Item == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.Item)
}

// PriceRow is a price_history row with its joined item.
type PriceRow struct {
	ID        string        `json:"id"`
	CheckedAt time.Time     `json:"checked_at"`
	Price     float64       `json:"price"`
	Currency  *string       `json:"currency,omitempty"`
	Items     JoinedItemRef `json:"items"`
}

// AvailabilityRow is an availability_history row with its joined item.
type AvailabilityRow struct {
	ID          string        `json:"id"`
	CheckedAt   time.Time     `json:"checked_at"`
	IsAvailable bool          `json:"is_available"`
	Items       JoinedItemRef `json:"items"`
}
