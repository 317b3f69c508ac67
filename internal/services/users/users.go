// Package users manages eco-points accounts.
package users

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
	"github.com/google/uuid"
)

type Service struct {
	log   *slog.Logger
	store storage.Repositories
	now   func() time.Time
}

func New(log *slog.Logger, store storage.Repositories, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{log: log, store: store, now: now}
}

// Create opens an account with a zero balance and a fresh redemption code.
func (s *Service) Create(ctx context.Context, email, name string) (*models.User, error) {
	const op = "users.Create"

	email, name = strings.TrimSpace(email), strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("name is required"))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("a valid email is required"))
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		Name:           name,
		Achievements:   []string{},
		RedemptionCode: uuid.NewString(),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		s.log.Error("failed to create user", slog.String("op", op), "error", err)
		return nil, apperr.Storage(op, err)
	}

	s.log.Info("user created", slog.String("op", op), slog.String("user_id", user.ID))

	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	const op = "users.Get"

	if id == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("user id is required"))
	}

	user, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	return user, nil
}

// UpdateWallet records the user's wallet address. Nothing is settled on chain.
func (s *Service) UpdateWallet(ctx context.Context, id, walletAddress string) (*models.User, error) {
	const op = "users.UpdateWallet"

	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("wallet address is required"))
	}

	if err := s.store.Users().UpdateWallet(ctx, id, walletAddress); err != nil {
		return nil, apperr.Storage(op, err)
	}

	return s.Get(ctx, id)
}

// ListTransactions returns the user's ledger, newest first. limit <= 0
// returns every entry.
func (s *Service) ListTransactions(ctx context.Context, id string, limit int) ([]models.EcoTransaction, error) {
	const op = "users.ListTransactions"

	if _, err := s.store.Users().Get(ctx, id); err != nil {
		return nil, apperr.Storage(op, err)
	}

	txs, err := s.store.Transactions().ListByUser(ctx, id, limit)
	if err != nil {
		s.log.Error("failed to list transactions", slog.String("op", op), slog.String("user_id", id), "error", err)
		return nil, apperr.Storage(op, err)
	}

	return txs, nil
}
