// Package storage declares the repository contracts consumed by the services.
// Implementations live in the postgres and memory subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
)

// ErrOutcomeUnknown is joined into a WithTx error when the transaction could
// neither be committed nor confirmed rolled back.
var ErrOutcomeUnknown = errors.New("transaction outcome unknown")

type Users interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	// AddPoints atomically adds delta to the user's balance and returns the
	// new balance. A result below zero fails with apperr.ErrInsufficientPoints
	// and leaves the balance untouched.
	AddPoints(ctx context.Context, id string, delta int64) (int64, error)
	// GrantAchievement adds achievement to the user's set. It reports false
	// when the user already held it.
	GrantAchievement(ctx context.Context, id, achievement string) (bool, error)
	UpdateWallet(ctx context.Context, id, walletAddress string) error
	// Top returns users ordered by eco points descending, then by creation
	// order, earliest first.
	Top(ctx context.Context, limit int) ([]models.User, error)
}

type WasteItems interface {
	Create(ctx context.Context, item *models.WasteItem) error
	// ListByUser returns the user's items scanned within [from, to], oldest first.
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.WasteItem, error)
}

type Transactions interface {
	Create(ctx context.Context, tx *models.EcoTransaction) error
	// ListByUser returns up to limit entries, newest first. limit <= 0 means all.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.EcoTransaction, error)
}

type Challenges interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	Get(ctx context.Context, id string) (*models.Challenge, error)
	// ListActive returns challenges with StartDate <= now <= EndDate.
	ListActive(ctx context.Context, now time.Time, limit int) ([]models.Challenge, error)
	// AddParticipant inserts userID into the participant set. Adding a
	// present member is a no-op.
	AddParticipant(ctx context.Context, challengeID, userID string) error
}

type MarketplaceItems interface {
	Create(ctx context.Context, item *models.MarketplaceItem) error
	Get(ctx context.Context, id string) (*models.MarketplaceItem, error)
	// ListAvailable returns available items, newest first. An empty category
	// matches every category.
	ListAvailable(ctx context.Context, category string, limit int) ([]models.MarketplaceItem, error)
	// MarkSold flips an available item to unavailable. It fails with
	// apperr.ErrInvalidInput when the item was already sold.
	MarkSold(ctx context.Context, id string) error
}

// Repositories bundles the repositories bound to one connection or transaction.
type Repositories interface {
	Users() Users
	WasteItems() WasteItems
	Transactions() Transactions
	Challenges() Challenges
	MarketplaceItems() MarketplaceItems
}

// Store is the storage entry point. Writes passed to WithTx either all apply
// or none do.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Close() error
}
