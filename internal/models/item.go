package models

import (
	"time"
)

// Item is a tracked product belonging to exactly one list. LastAttemptedAt
// is stamped whenever the scheduler picks the item, even if no price is found.
type Item struct {
	ID              string     `json:"id"`
	ListID          string     `json:"list_id"`
	UserID          string     `json:"user_id"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	ImageURL        *string    `json:"image_url"`
	Merchant        *string    `json:"merchant"`
	CurrentPrice    *float64   `json:"current_price"`
	Currency        string     `json:"currency"`
	IsAvailable     bool       `json:"is_available"`
	LastCheckedAt   *time.Time `json:"last_checked_at"`
	LastAttemptedAt *time.Time `json:"last_attempted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// List is a named, user-owned collection of items.
type List struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	FolderID    *string   `json:"folder_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemPriceUpdate is the item state written after every successful price check.
type ItemPriceUpdate struct {
	CurrentPrice  float64
	Currency      string
	IsAvailable   bool
	LastCheckedAt time.Time
}
