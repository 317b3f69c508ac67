// Package marketplace lists second-hand items priced in eco points and
// settles purchases through the ledger.
package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/services/ledger"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
	"github.com/google/uuid"
)

const listLimit = 50

type Service struct {
	log    *slog.Logger
	store  storage.Repositories
	ledger *ledger.Engine
	now    func() time.Time
}

func New(log *slog.Logger, store storage.Repositories, engine *ledger.Engine, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{log: log, store: store, ledger: engine, now: now}
}

// List returns available items, newest first. An empty category matches all.
func (s *Service) List(ctx context.Context, category string) ([]models.MarketplaceItem, error) {
	const op = "marketplace.List"

	items, err := s.store.MarketplaceItems().ListAvailable(ctx, category, listLimit)
	if err != nil {
		s.log.Error("failed to list items", slog.String("op", op), "error", err)
		return nil, apperr.Storage(op, err)
	}

	return items, nil
}

type CreateInput struct {
	SellerID    string  `json:"seller_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       int64   `json:"price"`
	ImageRef    *string `json:"image_url,omitempty"`
	Category    string  `json:"category"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.MarketplaceItem, error) {
	const op = "marketplace.Create"

	switch {
	case in.SellerID == "":
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("seller id is required"))
	case strings.TrimSpace(in.Title) == "":
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("title is required"))
	case strings.TrimSpace(in.Category) == "":
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("category is required"))
	case in.Price <= 0:
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("price must be positive"))
	}

	if _, err := s.store.Users().Get(ctx, in.SellerID); err != nil {
		return nil, apperr.Storage(op, err)
	}

	item := &models.MarketplaceItem{
		ID:          uuid.NewString(),
		SellerID:    in.SellerID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		ImageRef:    in.ImageRef,
		Category:    in.Category,
		IsAvailable: true,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.MarketplaceItems().Create(ctx, item); err != nil {
		s.log.Error("failed to create item", slog.String("op", op), "error", err)
		return nil, apperr.Storage(op, err)
	}

	return item, nil
}

type Receipt struct {
	Item         models.MarketplaceItem `json:"item"`
	BuyerBalance int64                  `json:"eco_points"`
}

// Purchase moves the item price from buyer to seller and marks the item
// sold, in one storage transaction.
func (s *Service) Purchase(ctx context.Context, itemID, buyerID string) (*Receipt, error) {
	const op = "marketplace.Purchase"

	log := s.log.With(slog.String("op", op), slog.String("item_id", itemID), slog.String("user_id", buyerID))

	if itemID == "" || buyerID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("item id and buyer id are required"))
	}

	var receipt Receipt
	err := s.ledger.Transact(ctx, op, buyerID, func(ctx context.Context, repos storage.Repositories) error {
		item, err := repos.MarketplaceItems().Get(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsAvailable {
			return apperr.Invalid("item is no longer available")
		}
		if item.SellerID == buyerID {
			return apperr.Invalid("cannot buy your own item")
		}

		debit, err := s.ledger.Post(ctx, repos, buyerID, -item.Price, fmt.Sprintf("Bought %s", item.Title))
		if err != nil {
			return err
		}
		if _, err := s.ledger.Post(ctx, repos, item.SellerID, item.Price, fmt.Sprintf("Sold %s", item.Title)); err != nil {
			return err
		}
		if err := repos.MarketplaceItems().MarkSold(ctx, item.ID); err != nil {
			return err
		}

		item.IsAvailable = false
		receipt = Receipt{Item: *item, BuyerBalance: debit.BalanceAfter}
		return nil
	})
	if err != nil {
		log.Info("purchase rejected", "kind", apperr.Kind(err), "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("item purchased", slog.Int64("price", receipt.Item.Price))

	return &receipt, nil
}
