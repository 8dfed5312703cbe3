package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/wishlist-tracker/internal/models"
)

// ListPriceHistory returns an item's price history, oldest first.
func (db *DB) ListPriceHistory(ctx context.Context, itemID string) ([]models.PriceHistoryRecord, error) {
	history := []models.PriceHistoryRecord{}
	if !isUUID(itemID) {
		return history, nil
	}

	query := `
		SELECT id::text, item_id::text, price::float8, currency, checked_at
		FROM price_history
		WHERE item_id = $1
		ORDER BY checked_at ASC`

	rows, err := db.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h models.PriceHistoryRecord
		if err := rows.Scan(&h.ID, &h.ItemID, &h.Price, &h.Currency, &h.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return history, nil
}

// ListRecentPriceRows returns the newest price history rows joined with
// their item.
func (db *DB) ListRecentPriceRows(ctx context.Context, limit int) ([]models.PriceRow, error) {
	query := `
		SELECT ph.id::text, ph.checked_at, ph.price::float8, ph.currency,
			i.id::text, i.title, i.list_id::text, i.merchant
		FROM price_history ph
		LEFT JOIN items i ON i.id = ph.item_id
		ORDER BY ph.checked_at DESC
		LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price rows: %w", err)
	}
	defer rows.Close()

	result := []models.PriceRow{}
	for rows.Next() {
		var row models.PriceRow
		var item models.JoinedItem
		if err := rows.Scan(
			&row.ID, &row.CheckedAt, &row.Price, &row.Currency,
			&item.ID, &item.Title, &item.ListID, &item.Merchant,
		); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		row.Items = joinedRef(&item)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// ListRecentAvailabilityRows returns the newest availability rows joined
// with their item.
func (db *DB) ListRecentAvailabilityRows(ctx context.Context, limit int) ([]models.AvailabilityRow, error) {
	query := `
		SELECT ah.id::text, ah.checked_at, ah.is_available,
			i.id::text, i.title, i.list_id::text, i.merchant
		FROM availability_history ah
		LEFT JOIN items i ON i.id = ah.item_id
		ORDER BY ah.checked_at DESC
		LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability rows: %w", err)
	}
	defer rows.Close()

	result := []models.AvailabilityRow{}
	for rows.Next() {
		var row models.AvailabilityRow
		var item models.JoinedItem
		if err := rows.Scan(
			&row.ID, &row.CheckedAt, &row.IsAvailable,
			&item.ID, &item.Title, &item.ListID, &item.Merchant,
		); err != nil {
			return nil, fmt.Errorf("failed to scan availability row: %w", err)
		}
		row.Items = joinedRef(&item)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// ApplyPriceCheckTx writes the history rows and item update of one price
// check inside tx.
func ApplyPriceCheckTx(ctx context.Context, tx pgx.Tx, write *models.PriceCheckWrite) error {
	if h := write.PriceHistory; h != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO price_history (id, item_id, price, currency, checked_at)
			VALUES ($1, $2, $3, $4, $5)`,
			h.ID, h.ItemID, h.Price, h.Currency, h.CheckedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert price history: %w", err)
		}
	}

	a := write.Availability
	_, err := tx.Exec(ctx, `
		INSERT INTO availability_history (id, item_id, is_available, checked_at)
		VALUES ($1, $2, $3, $4)`,
		a.ID, a.ItemID, a.IsAvailable, a.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert availability history: %w", err)
	}

	u := write.ItemUpdate
	tag, err := tx.Exec(ctx, `
		UPDATE items
		SET current_price = $1, currency = $2, is_available = $3,
			last_checked_at = $4, updated_at = NOW()
		WHERE id = $5`,
		u.CurrentPrice, u.Currency, u.IsAvailable, u.LastCheckedAt, write.ItemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update item %s: %w", write.ItemID, ErrNotFound)
	}

	return nil
}

// joinedRef drops the join when the LEFT JOIN matched nothing.
func joinedRef(item *models.JoinedItem) models.JoinedItemRef {
	if item.ID == nil {
		return models.JoinedItemRef{}
	}
	return models.NewJoinedItemRef(item)
}
