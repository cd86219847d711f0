package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"canary/internal/domain"
	"canary/internal/models"
)

// ErrItemNotFound is returned by UpdateItem and DeleteItem when no row has the id.
var ErrItemNotFound = domain.ErrItemNotFound

func (db *DB) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, description FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		var (
			item        models.Item
			description sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Name, &description); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Description = description.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, description) VALUES (?, ?)`,
		item.Name, item.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	return nil
}

func (db *DB) ItemExists(ctx context.Context, id int64) (bool, error) {
	return itemExists(ctx, db.DB, id)
}

// UpdateItem replaces name and description of an existing row. The existence
// probe and the update share one transaction.
func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := itemExists(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("update item %d: %w", item.ID, ErrItemNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET name = ?, description = ? WHERE id = ?`,
			item.Name, item.Description, item.ID,
		); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		return nil
	})
}

func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := itemExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("delete item %d: %w", id, ErrItemNotFound)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return nil
	})
}

func (db *DB) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func itemExists(ctx context.Context, q queryRower, id int64) (bool, error) {
	var found int64
	err := q.QueryRowContext(ctx, `SELECT id FROM items WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check item %d: %w", id, err)
	}
	return true, nil
}
