package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/wishlist-tracker/internal/database"
	"github.com/maltedev/wishlist-tracker/internal/models"
	"github.com/maltedev/wishlist-tracker/internal/pricing"
)

type EventType string

const (
	// EventTypePriceChanged is emitted when a recheck records a price that
	// differs from a previously known one.
	EventTypePriceChanged EventType = "PRICE_CHANGED"
)

type PriceChangedPayload struct {
	EventID       string                `json:"event_id"`
	EventType     string                `json:"event_type"`
	Timestamp     time.Time             `json:"timestamp"`
	ItemID        string                `json:"item_id"`
	PreviousPrice float64               `json:"previous_price"`
	Price         float64               `json:"price"`
	Currency      string                `json:"currency"`
	PriceChange   float64               `json:"price_change"`
	Direction     models.PriceDirection `json:"direction"`
	Source        string                `json:"source"`
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

type OutboxWriter interface {
	EnqueueItemEventTx(ctx context.Context, tx pgx.Tx, event database.ItemEvent) (*database.OutboxEvent, error)
}

type applyFunc func(ctx context.Context, tx pgx.Tx, write *models.PriceCheckWrite) error

// Publisher records price checks and their outbox events in one transaction.
type Publisher struct {
	db     TxRunner
	outbox OutboxWriter
	apply  applyFunc
	logger *slog.Logger
}

var _ pricing.Recorder = (*Publisher)(nil)

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: database.NewOutboxRepository(db),
		apply:  database.ApplyPriceCheckTx,
		logger: logger.With("component", "event_publisher"),
	}
}

// RecordPriceCheck applies the write and, when a new history row follows a
// known price, enqueues a PRICE_CHANGED event. Nothing is committed if any
// step fails. Errors are returned unwrapped; callers add the context.
func (p *Publisher) RecordPriceCheck(ctx context.Context, write *models.PriceCheckWrite) error {
	event := priceChangedEvent(write)

	var enqueued *database.OutboxEvent
	err := p.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := p.apply(ctx, tx, write); err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		var err error
		enqueued, err = p.outbox.EnqueueItemEventTx(ctx, tx, *event)
		return err
	})
	if err != nil {
		return err
	}

	if enqueued != nil {
		p.logger.Info("price change published to outbox",
			"item_id", write.ItemID,
			"outbox_id", enqueued.ID,
		)
	}
	return nil
}

func priceChangedEvent(write *models.PriceCheckWrite) *database.ItemEvent {
	if write.PriceHistory == nil || write.PreviousPrice == nil {
		return nil
	}

	change, direction := pricing.PriceDelta(write.PreviousPrice, write.PriceHistory.Price)
	return &database.ItemEvent{
		ItemID:    write.ItemID,
		EventType: string(EventTypePriceChanged),
		Payload: PriceChangedPayload{
			EventID:       uuid.NewString(),
			EventType:     string(EventTypePriceChanged),
			Timestamp:     write.PriceHistory.CheckedAt,
			ItemID:        write.ItemID,
			PreviousPrice: *write.PreviousPrice,
			Price:         write.PriceHistory.Price,
			Currency:      write.PriceHistory.Currency,
			PriceChange:   *change,
			Direction:     direction,
			Source:        "price_checker",
		},
	}
}
