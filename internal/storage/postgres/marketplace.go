package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
)

const (
	queryCreateMarketItem = `INSERT INTO marketplace_items (id, seller_id, title, description, price, image_url, category, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	marketColumns = `SELECT id, seller_id, title, description, price, image_url, category, is_available, created_at
		FROM marketplace_items`

	queryGetMarketItem = marketColumns + ` WHERE id = $1`

	queryListMarketItems = marketColumns + `
		WHERE is_available AND ($1 = '' OR category = $1)
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`

	queryMarkSold = `UPDATE marketplace_items SET is_available = false WHERE id = $1 AND is_available`

	queryMarketItemExists = `SELECT EXISTS (SELECT 1 FROM marketplace_items WHERE id = $1)`
)

type MarketplaceItems struct {
	db DBTX
}

func (r *MarketplaceItems) Create(ctx context.Context, item *models.MarketplaceItem) error {
	const op = "storage.postgres.MarketplaceItems.Create"

	_, err := r.db.ExecContext(ctx, queryCreateMarketItem,
		item.ID, item.SellerID, item.Title, item.Description, item.Price, item.ImageRef, item.Category, item.IsAvailable, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *MarketplaceItems) Get(ctx context.Context, id string) (*models.MarketplaceItem, error) {
	const op = "storage.postgres.MarketplaceItems.Get"

	item, err := scanMarketItem(r.db.QueryRowContext(ctx, queryGetMarketItem, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (r *MarketplaceItems) ListAvailable(ctx context.Context, category string, limit int) (items []models.MarketplaceItem, err error) {
	const op = "storage.postgres.MarketplaceItems.ListAvailable"

	rows, err := r.db.QueryContext(ctx, queryListMarketItems, category, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closeRows(rows, &err)

	items = []models.MarketplaceItem{}
	for rows.Next() {
		item, err := scanMarketItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (r *MarketplaceItems) MarkSold(ctx context.Context, id string) error {
	const op = "storage.postgres.MarketplaceItems.MarkSold"

	res, err := r.db.ExecContext(ctx, queryMarkSold, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}

	found, err := exists(ctx, r.db, queryMarketItemExists, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, apperr.Invalid("item is no longer available"))
}

func scanMarketItem(row scanner) (*models.MarketplaceItem, error) {
	var (
		item  models.MarketplaceItem
		image sql.NullString
	)

	if err := row.Scan(&item.ID, &item.SellerID, &item.Title, &item.Description, &item.Price,
		&image, &item.Category, &item.IsAvailable, &item.CreatedAt); err != nil {
		return nil, err
	}
	if image.Valid {
		item.ImageRef = &image.String
	}

	return &item, nil
}
