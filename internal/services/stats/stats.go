// Package stats computes read-only aggregates over the eco-points ledger.
// Results are not linearized against concurrent scans.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
)

const day = 24 * time.Hour

// maxWindowDays bounds the stats window; larger windows are clamped.
const maxWindowDays = 100 * 366

type Stats struct {
	UserID            string                  `json:"user_id"`
	WindowDays        int                     `json:"window_days"`
	TotalItems        int                     `json:"total_items_recycled"`
	Breakdown         map[models.Category]int `json:"waste_breakdown"`
	PointsInWindow    int64                   `json:"points_this_month"`
	Balance           int64                   `json:"eco_points"`
	AchievementsCount int                     `json:"achievements_count"`
	StreakDays        int                     `json:"streak_days"`
}

type RankEntry struct {
	Rank              int    `json:"rank"`
	UserID            string `json:"user_id"`
	Name              string `json:"name"`
	EcoPoints         int64  `json:"eco_points"`
	AchievementsCount int    `json:"achievements_count"`
}

type Service struct {
	log      *slog.Logger
	store    storage.Repositories
	maxLimit int
	now      func() time.Time
}

// New returns a stats service. Leaderboard limits above maxLimit are
// clamped; maxLimit <= 0 disables clamping.
func New(log *slog.Logger, store storage.Repositories, maxLimit int, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{log: log, store: store, maxLimit: maxLimit, now: now}
}

// GetUserStats aggregates the user's scans within [now - windowDays, now].
func (s *Service) GetUserStats(ctx context.Context, userID string, windowDays int) (*Stats, error) {
	const op = "stats.GetUserStats"

	if userID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("user id is required"))
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("window days must be positive"))
	}
	windowDays = min(windowDays, maxWindowDays)

	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	now := s.now().UTC()
	items, err := s.store.WasteItems().ListByUser(ctx, userID, now.AddDate(0, 0, -windowDays), now)
	if err != nil {
		s.log.Error("failed to list waste items", slog.String("op", op), slog.String("user_id", userID), "error", err)
		return nil, apperr.Storage(op, err)
	}

	st := &Stats{
		UserID:            userID,
		WindowDays:        windowDays,
		TotalItems:        len(items),
		Breakdown:         make(map[models.Category]int),
		Balance:           user.EcoPoints,
		AchievementsCount: len(user.Achievements),
		StreakDays:        streak(items, now),
	}
	for _, item := range items {
		st.Breakdown[item.Category]++
		st.PointsInWindow += item.PointsEarned
	}

	return st, nil
}

// streak counts consecutive UTC calendar days, ending today, with at least
// one scan. It cannot exceed the number of days covered by items.
func streak(items []models.WasteItem, now time.Time) int {
	days := make(map[int64]struct{}, len(items))
	for _, item := range items {
		days[dayNumber(item.ScannedAt)] = struct{}{}
	}

	n := 0
	for d := dayNumber(now); ; d-- {
		if _, ok := days[d]; !ok {
			return n
		}
		n++
	}
}

func dayNumber(t time.Time) int64 {
	return t.UTC().Truncate(day).Unix() / int64(day/time.Second)
}

// GetLeaderboard ranks users by balance, highest first; ties keep creation
// order. Ranks are 1-based positions in the returned slice.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]RankEntry, error) {
	const op = "stats.GetLeaderboard"

	if limit <= 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("limit must be positive"))
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}

	users, err := s.store.Users().Top(ctx, limit)
	if err != nil {
		s.log.Error("failed to load leaderboard", slog.String("op", op), "error", err)
		return nil, apperr.Storage(op, err)
	}

	entries := make([]RankEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, RankEntry{
			Rank:              i + 1,
			UserID:            u.ID,
			Name:              u.Name,
			EcoPoints:         u.EcoPoints,
			AchievementsCount: len(u.Achievements),
		})
	}

	return entries, nil
}
