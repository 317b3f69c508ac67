// Package challenges tracks time-windowed challenges and their participants.
package challenges

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

const defaultListLimit = 20

const defaultMaxRewardPoints = 500

type Service struct {
	log             *slog.Logger
	store           storage.Repositories
	ledger          *ledger.Engine
	now             func() time.Time
	maxRewardPoints int64
}

type Option func(*Service)

// WithMaxRewardPoints caps the reward a new challenge may carry.
func WithMaxRewardPoints(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRewardPoints = n
		}
	}
}

func New(log *slog.Logger, store storage.Repositories, engine *ledger.Engine, now func() time.Time, opts ...Option) *Service {
	if now == nil {
		now = time.Now
	}
	s := &Service{log: log, store: store, ledger: engine, now: now, maxRewardPoints: defaultMaxRewardPoints}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TargetCount  int       `json:"target_count"`
	RewardPoints int64     `json:"reward_points"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Challenge, error) {
	const op = "challenges.Create"

	switch {
	case strings.TrimSpace(in.Title) == "":
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("title is required"))
	case in.TargetCount <= 0:
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("target count must be positive"))
	case in.RewardPoints < 0:
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("reward points must not be negative"))
	case in.RewardPoints > s.maxRewardPoints:
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid(fmt.Sprintf("reward points must not exceed %d", s.maxRewardPoints)))
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("start and end dates are required"))
	case in.EndDate.Before(in.StartDate):
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("end date precedes start date"))
	}

	c := &models.Challenge{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		TargetCount:  in.TargetCount,
		RewardPoints: in.RewardPoints,
		StartDate:    in.StartDate.UTC(),
		EndDate:      in.EndDate.UTC(),
		Participants: []string{},
	}
	if err := s.store.Challenges().Create(ctx, c); err != nil {
		s.log.Error("failed to create challenge", slog.String("op", op), "error", err)
		return nil, apperr.Storage(op, err)
	}

	return c, nil
}

// ListActive returns challenges whose window contains the current time.
func (s *Service) ListActive(ctx context.Context) ([]models.Challenge, error) {
	return s.ListActiveAt(ctx, s.now())
}

// ListActiveAt returns challenges with start <= now <= end.
func (s *Service) ListActiveAt(ctx context.Context, now time.Time) ([]models.Challenge, error) {
	const op = "challenges.ListActive"

	list, err := s.store.Challenges().ListActive(ctx, now.UTC(), defaultListLimit)
	if err != nil {
		s.log.Error("failed to list challenges", slog.String("op", op), "error", err)
		return nil, apperr.Storage(op, err)
	}

	return list, nil
}

// Join adds userID to the challenge. Joining twice is a no-op. The user id
// is not checked against the user store.
func (s *Service) Join(ctx context.Context, challengeID, userID string) error {
	const op = "challenges.Join"

	if challengeID == "" || userID == "" {
		return fmt.Errorf("%s: %w", op, apperr.Invalid("challenge id and user id are required"))
	}

	if err := s.store.Challenges().AddParticipant(ctx, challengeID, userID); err != nil {
		return apperr.Storage(op, err)
	}

	s.log.Debug("joined challenge", slog.String("op", op), slog.String("challenge_id", challengeID), slog.String("user_id", userID))

	return nil
}

// Status returns the derived state of the challenge at the current time.
func (s *Service) Status(ctx context.Context, challengeID string) (models.ChallengeStatus, error) {
	const op = "challenges.Status"

	c, err := s.store.Challenges().Get(ctx, challengeID)
	if err != nil {
		return "", apperr.Storage(op, err)
	}

	return c.Status(s.now()), nil
}

type ClaimResult struct {
	ChallengeID  string `json:"challenge_id"`
	Achievement  string `json:"achievement"`
	Granted      bool   `json:"granted"`
	RewardPoints int64  `json:"reward_points"`
	Balance      int64  `json:"eco_points"`
}

// ClaimReward grants the challenge achievement and its reward points to a
// participant who scanned at least TargetCount items inside the window.
// A second claim returns Granted false and credits nothing.
func (s *Service) ClaimReward(ctx context.Context, challengeID, userID string) (*ClaimResult, error) {
	const op = "challenges.ClaimReward"

	log := s.log.With(slog.String("op", op), slog.String("challenge_id", challengeID), slog.String("user_id", userID))

	res := &ClaimResult{ChallengeID: challengeID}
	err := s.ledger.Transact(ctx, op, userID, func(ctx context.Context, repos storage.Repositories) error {
		c, err := repos.Challenges().Get(ctx, challengeID)
		if err != nil {
			return err
		}
		if !c.HasParticipant(userID) {
			return apperr.Invalid("user has not joined the challenge")
		}

		items, err := repos.WasteItems().ListByUser(ctx, userID, c.StartDate, c.EndDate)
		if err != nil {
			return err
		}
		if len(items) < c.TargetCount {
			return apperr.Invalid(fmt.Sprintf("target not reached: %d of %d items", len(items), c.TargetCount))
		}

		res.Achievement = c.AchievementID()
		granted, err := repos.Users().GrantAchievement(ctx, userID, res.Achievement)
		if err != nil {
			return err
		}
		if !granted {
			return nil
		}
		res.Granted = true

		if c.RewardPoints > 0 {
			tx, err := s.ledger.Post(ctx, repos, userID, c.RewardPoints, fmt.Sprintf("Completed challenge %q", c.Title))
			if err != nil {
				return err
			}
			res.RewardPoints = c.RewardPoints
			res.Balance = tx.BalanceAfter
		}
		return nil
	})
	if err != nil {
		log.Info("claim rejected", "kind", apperr.Kind(err), "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !res.Granted || res.RewardPoints == 0 {
		u, err := s.store.Users().Get(ctx, userID)
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		res.Balance = u.EcoPoints
	}

	log.Debug("challenge reward claimed", slog.Bool("granted", res.Granted), slog.Int64("points", res.RewardPoints))

	return res, nil
}
