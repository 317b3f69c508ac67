package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/lib/pq"
)

const (
	queryCreateUser = `INSERT INTO users (id, email, name, wallet_address, eco_points, achievements, qr_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	queryGetUser = `SELECT id, email, name, wallet_address, eco_points, achievements, qr_code, created_at
		FROM users WHERE id = $1`

	queryAddPoints = `UPDATE users SET eco_points = eco_points + $1
		WHERE id = $2 AND eco_points + $1 >= 0
		RETURNING eco_points`

	queryGrantAchievement = `UPDATE users SET achievements = array_append(achievements, $2)
		WHERE id = $1 AND NOT ($2 = ANY(achievements))`

	queryUpdateWallet = `UPDATE users SET wallet_address = $1 WHERE id = $2`

	queryTopUsers = `SELECT id, email, name, wallet_address, eco_points, achievements, qr_code, created_at
		FROM users ORDER BY eco_points DESC, seq ASC LIMIT $1`

	queryUserExists = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
)

type Users struct {
	db DBTX
}

func (r *Users) Create(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.Users.Create"

	_, err := r.db.ExecContext(ctx, queryCreateUser,
		user.ID, user.Email, user.Name, user.WalletAddress, user.EcoPoints,
		pq.Array(achievementsOf(user)), user.RedemptionCode, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Users) Get(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgres.Users.Get"

	user, err := scanUser(r.db.QueryRowContext(ctx, queryGetUser, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// AddPoints relies on the row lock taken by UPDATE: concurrent callers for
// the same user queue behind the holder until its transaction ends.
func (r *Users) AddPoints(ctx context.Context, id string, delta int64) (int64, error) {
	const op = "storage.postgres.Users.AddPoints"

	var balance int64
	err := r.db.QueryRowContext(ctx, queryAddPoints, delta, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	found, err := exists(ctx, r.db, queryUserExists, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	return 0, fmt.Errorf("%s: %w", op, apperr.ErrInsufficientPoints)
}

func (r *Users) GrantAchievement(ctx context.Context, id, achievement string) (bool, error) {
	const op = "storage.postgres.Users.GrantAchievement"

	res, err := r.db.ExecContext(ctx, queryGrantAchievement, id, achievement)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return true, nil
	}

	found, err := exists(ctx, r.db, queryUserExists, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return false, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	return false, nil
}

func (r *Users) UpdateWallet(ctx context.Context, id, walletAddress string) error {
	const op = "storage.postgres.Users.UpdateWallet"

	res, err := r.db.ExecContext(ctx, queryUpdateWallet, walletAddress, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	return nil
}

func (r *Users) Top(ctx context.Context, limit int) (users []models.User, err error) {
	const op = "storage.postgres.Users.Top"

	rows, err := r.db.QueryContext(ctx, queryTopUsers, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closeRows(rows, &err)

	users = []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		user   models.User
		wallet sql.NullString
	)
	achievements := pq.StringArray{}

	if err := row.Scan(&user.ID, &user.Email, &user.Name, &wallet, &user.EcoPoints,
		&achievements, &user.RedemptionCode, &user.CreatedAt); err != nil {
		return nil, err
	}

	if wallet.Valid {
		user.WalletAddress = &wallet.String
	}
	user.Achievements = []string(achievements)
	if user.Achievements == nil {
		user.Achievements = []string{}
	}

	return &user, nil
}

func achievementsOf(user *models.User) []string {
	if user.Achievements == nil {
		return []string{}
	}
	return user.Achievements
}
