package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/wishlist-tracker/internal/models"
)

const itemColumns = `
	id::text, list_id::text, user_id::text, title, url, image_url, merchant,
	current_price::float8, currency, is_available, last_checked_at,
	last_attempted_at, created_at, updated_at`

func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID, &item.ListID, &item.UserID, &item.Title, &item.URL,
		&item.ImageURL, &item.Merchant, &item.CurrentPrice, &item.Currency,
		&item.IsAvailable, &item.LastCheckedAt, &item.LastAttemptedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectItems(rows pgx.Rows) ([]models.Item, error) {
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return items, nil
}

// GetItem returns ErrNotFound when no item has the given id.
func (db *DB) GetItem(ctx context.Context, id string) (*models.Item, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListItemsByList returns the items of a list, oldest first.
func (db *DB) ListItemsByList(ctx context.Context, listID string) ([]models.Item, error) {
	if !isUUID(listID) {
		return []models.Item{}, nil
	}
	query := `SELECT ` + itemColumns + `
		FROM items
		WHERE list_id = $1
		ORDER BY created_at ASC`

	rows, err := db.pool.Query(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return collectItems(rows)
}

// ListStaleItems returns items not checked since cutoff that were also not
// attempted since cutoff. Items that keep failing therefore wait a full
// window before they are picked again and cannot crowd out the rest.
func (db *DB) ListStaleItems(ctx context.Context, cutoff time.Time, limit int) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items
		WHERE (last_checked_at IS NULL OR last_checked_at < $1)
			AND (last_attempted_at IS NULL OR last_attempted_at < $1)
		ORDER BY last_attempted_at ASC NULLS FIRST,
			last_checked_at ASC NULLS FIRST,
			created_at ASC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale items: %w", err)
	}
	return collectItems(rows)
}

// MarkAttempted stamps last_attempted_at on the given items.
func (db *DB) MarkAttempted(ctx context.Context, ids []string, at time.Time) error {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	_, err := db.pool.Exec(ctx,
		`UPDATE items SET last_attempted_at = $2 WHERE id = ANY($1::uuid[])`, valid, at)
	if err != nil {
		return fmt.Errorf("failed to mark items attempted: %w", err)
	}
	return nil
}

// CreateItem inserts an item and fills in its generated fields.
func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	if item.Currency == "" {
		item.Currency = models.DefaultCurrency
	}

	query := `
		INSERT INTO items (
			list_id, user_id, title, url, image_url, merchant,
			current_price, currency, is_available
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text, created_at, updated_at`

	err := db.pool.QueryRow(ctx, query,
		item.ListID, item.UserID, item.Title, item.URL, item.ImageURL, item.Merchant,
		item.CurrentPrice, item.Currency, item.IsAvailable,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetList returns ErrNotFound when no list has the given id.
func (db *DB) GetList(ctx context.Context, id string) (*models.List, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	query := `
		SELECT id::text, user_id::text, folder_id::text, name, description, created_at, updated_at
		FROM lists
		WHERE id = $1`

	var l models.List
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.UserID, &l.FolderID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return &l, nil
}

// CreateList inserts a list and fills in its generated fields.
func (db *DB) CreateList(ctx context.Context, l *models.List) error {
	query := `
		INSERT INTO lists (user_id, folder_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at, updated_at`

	err := db.pool.QueryRow(ctx, query, l.UserID, l.FolderID, l.Name, l.Description).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert list: %w", err)
	}
	return nil
}

// ListNamesByID maps every list id to its name.
func (db *DB) ListNamesByID(ctx context.Context) (map[string]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT id::text, name FROM lists`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return names, nil
}

func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}
