package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessed  = "processed"
	OutboxStatusFailed     = "failed"
	OutboxStatusDeadLetter = "dead_letter"

	// MaxRetryCount is the number of failed publishes after which an event
	// is moved to dead letter.
	MaxRetryCount = 5

	// MaxRetryBackoff caps the delay between publish attempts.
	MaxRetryBackoff = 5 * time.Minute

	// StreamPriceTracking receives every price tracking event.
	StreamPriceTracking = "stream:price_tracking"

	// AggregateItem keys price tracking events by item id.
	AggregateItem = "item"
)

// OutboxEvent is a row in the transactional outbox.
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	TargetStream  string
	Status        string
	RetryCount    int
	ErrorMessage  *string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	NextRetryAt   *time.Time
}

// ItemID returns the item an event belongs to, or "" for other aggregates.
func (e *OutboxEvent) ItemID() string {
	if e.AggregateType != AggregateItem {
		return ""
	}
	return e.AggregateID
}

// ItemEvent is a price tracking event about one item.
type ItemEvent struct {
	ItemID    string
	EventType string
	Payload   any
}

const outboxColumns = `
	id, aggregate_type, aggregate_id, event_type, payload, target_stream,
	status, retry_count, error_message, created_at, processed_at, next_retry_at`

func scanOutboxEvent(row pgx.Row) (*OutboxEvent, error) {
	var e OutboxEvent
	err := row.Scan(
		&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.TargetStream,
		&e.Status, &e.RetryCount, &e.ErrorMessage, &e.CreatedAt, &e.ProcessedAt, &e.NextRetryAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type OutboxRepository struct {
	db *DB
}

func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// EnqueueItemEventTx writes an item event to the price tracking stream as
// part of tx. The event is due for relay immediately.
func (r *OutboxRepository) EnqueueItemEventTx(ctx context.Context, tx pgx.Tx, ev ItemEvent) (*OutboxEvent, error) {
	if ev.ItemID == "" || ev.EventType == "" {
		return nil, errors.New("item event needs an item id and an event type")
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.EventType, err)
	}

	query := `
		INSERT INTO outbox_event (aggregate_type, aggregate_id, event_type, payload, target_stream)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + outboxColumns

	event, err := scanOutboxEvent(tx.QueryRow(ctx, query,
		AggregateItem, ev.ItemID, ev.EventType, payload, StreamPriceTracking))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s for item %s: %w", ev.EventType, ev.ItemID, err)
	}
	return event, nil
}

// GetPending returns events on stream that are pending or due for a retry,
// oldest first.
func (r *OutboxRepository) GetPending(ctx context.Context, stream string, limit int) ([]*OutboxEvent, error) {
	query := `SELECT ` + outboxColumns + `
		FROM outbox_event
		WHERE target_stream = $1
			AND status IN ($2, $3)
			AND next_retry_at <= NOW()
		ORDER BY created_at ASC
		LIMIT $4`

	rows, err := r.db.pool.Query(ctx, query, stream, OutboxStatusPending, OutboxStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	defer rows.Close()

	events := []*OutboxEvent{}
	for rows.Next() {
		event, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.pool.Exec(ctx,
		`UPDATE outbox_event SET status = $1, processed_at = NOW() WHERE id = $2`,
		OutboxStatusProcessed, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkFailed records a publish failure in one statement and returns the new
// status. Retries back off 2^n seconds up to MaxRetryBackoff; the
// MaxRetryCount-th failure dead-letters the event.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, processErr error) (string, error) {
	query := `
		UPDATE outbox_event
		SET retry_count = retry_count + 1,
			status = CASE WHEN retry_count + 1 >= $2 THEN $3::text ELSE $4::text END,
			error_message = $5,
			next_retry_at = NOW() + make_interval(secs => LEAST(power(2, retry_count + 1), $6))
		WHERE id = $1
		RETURNING status`

	var status string
	err := r.db.pool.QueryRow(ctx, query,
		id, MaxRetryCount, OutboxStatusDeadLetter, OutboxStatusFailed,
		processErr.Error(), MaxRetryBackoff.Seconds(),
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return status, nil
}

// CountByStatus counts outbox events in any of the given statuses.
func (r *OutboxRepository) CountByStatus(ctx context.Context, statuses ...string) (int64, error) {
	var count int64
	err := r.db.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM outbox_event WHERE status = ANY($1)", statuses).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return count, nil
}
