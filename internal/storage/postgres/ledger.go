package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
)

const (
	queryCreateWasteItem = `INSERT INTO waste_items (id, user_id, item_type, disposal_method, eco_points_earned, image_url, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	queryListWasteItems = `SELECT id, user_id, item_type, disposal_method, eco_points_earned, image_url, scanned_at
		FROM waste_items
		WHERE user_id = $1 AND scanned_at >= $2 AND scanned_at <= $3
		ORDER BY scanned_at ASC, seq ASC`

	queryCreateTransaction = `INSERT INTO eco_transactions (id, user_id, amount, transaction_type, description, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	queryListTransactions = `SELECT id, user_id, amount, transaction_type, description, balance_after, created_at
		FROM eco_transactions
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2`
)

type WasteItems struct {
	db DBTX
}

func (r *WasteItems) Create(ctx context.Context, item *models.WasteItem) error {
	const op = "storage.postgres.WasteItems.Create"

	_, err := r.db.ExecContext(ctx, queryCreateWasteItem,
		item.ID, item.UserID, string(item.Category), item.DisposalMethod, item.PointsEarned, item.ImageRef, item.ScannedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *WasteItems) ListByUser(ctx context.Context, userID string, from, to time.Time) (items []models.WasteItem, err error) {
	const op = "storage.postgres.WasteItems.ListByUser"

	rows, err := r.db.QueryContext(ctx, queryListWasteItems, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closeRows(rows, &err)

	items = []models.WasteItem{}
	for rows.Next() {
		var (
			item     models.WasteItem
			category string
			image    sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.UserID, &category, &item.DisposalMethod, &item.PointsEarned, &image, &item.ScannedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item.Category = models.Category(category)
		if image.Valid {
			item.ImageRef = &image.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

type Transactions struct {
	db DBTX
}

func (r *Transactions) Create(ctx context.Context, tx *models.EcoTransaction) error {
	const op = "storage.postgres.Transactions.Create"

	_, err := r.db.ExecContext(ctx, queryCreateTransaction,
		tx.ID, tx.UserID, tx.Amount, string(tx.Kind), tx.Description, tx.BalanceAfter, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Transactions) ListByUser(ctx context.Context, userID string, limit int) (txs []models.EcoTransaction, err error) {
	const op = "storage.postgres.Transactions.ListByUser"

	// LIMIT NULL means no limit.
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.db.QueryContext(ctx, queryListTransactions, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closeRows(rows, &err)

	txs = []models.EcoTransaction{}
	for rows.Next() {
		var (
			tx   models.EcoTransaction
			kind string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &kind, &tx.Description, &tx.BalanceAfter, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tx.Kind = models.TransactionKind(kind)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return txs, nil
}
