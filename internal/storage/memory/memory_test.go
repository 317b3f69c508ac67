package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *Store, id string, points int64) {
	t.Helper()
	require.NoError(t, s.Users().Create(context.Background(), &models.User{ID: id, Name: id, EcoPoints: points}))
}

func TestUsers_AddPoints(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", 10)

	balance, err := s.Users().AddPoints(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)

	_, err = s.Users().AddPoints(ctx, "u1", -16)
	assert.ErrorIs(t, err, apperr.ErrInsufficientPoints)

	u, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), u.EcoPoints)

	_, err = s.Users().AddPoints(ctx, "ghost", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUsers_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", 0)
	_, err := s.Users().GrantAchievement(ctx, "u1", "a")
	require.NoError(t, err)

	u, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	u.Achievements[0] = "mutated"

	again, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Achievements)
}

func TestUsers_GrantAchievementIsSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", 0)

	granted, err := s.Users().GrantAchievement(ctx, "u1", "challenge:1")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = s.Users().GrantAchievement(ctx, "u1", "challenge:1")
	require.NoError(t, err)
	assert.False(t, granted)

	u, _ := s.Users().Get(ctx, "u1")
	assert.Equal(t, []string{"challenge:1"}, u.Achievements)
}

func TestUsers_TopBreaksTiesByCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "first", 50)
	seedUser(t, s, "second", 50)
	seedUser(t, s, "third", 30)

	for i := 0; i < 3; i++ {
		top, err := s.Users().Top(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "first", top[0].ID)
		assert.Equal(t, "second", top[1].ID)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", 10)
	require.NoError(t, s.Challenges().Create(ctx, &models.Challenge{ID: "c1"}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		if _, err := repos.Users().AddPoints(ctx, "u1", 7); err != nil {
			return err
		}
		if err := repos.WasteItems().Create(ctx, &models.WasteItem{ID: "w1", UserID: "u1", ScannedAt: time.Now()}); err != nil {
			return err
		}
		if _, err := repos.Users().GrantAchievement(ctx, "u1", "x"); err != nil {
			return err
		}
		if err := repos.Challenges().AddParticipant(ctx, "c1", "u1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, _ := s.Users().Get(ctx, "u1")
	assert.Equal(t, int64(10), u.EcoPoints)
	assert.Empty(t, u.Achievements)

	items, _ := s.WasteItems().ListByUser(ctx, "u1", time.Time{}, time.Now().Add(time.Hour))
	assert.Empty(t, items)

	c, _ := s.Challenges().Get(ctx, "c1")
	assert.Empty(t, c.Participants)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", 0)

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
			_, _ = repos.Users().AddPoints(ctx, "u1", 3)
			panic("boom")
		})
	})

	u, _ := s.Users().Get(ctx, "u1")
	assert.Equal(t, int64(0), u.EcoPoints)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUser(t, s, "u1", 0)

	err := s.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		balance, err := repos.Users().AddPoints(ctx, "u1", 4)
		if err != nil {
			return err
		}
		return repos.Transactions().Create(ctx, &models.EcoTransaction{ID: "t1", UserID: "u1", Amount: 4, BalanceAfter: balance})
	})
	require.NoError(t, err)

	txs, _ := s.Transactions().ListByUser(ctx, "u1", 0)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(4), txs[0].BalanceAfter)
}

func TestWithTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().WithTx(ctx, func(context.Context, storage.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWasteItems_ListByUserWindowIsInclusive(t *testing.T) {
	ctx := context.Background()
	s := New()
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	for i, at := range []time.Time{from.Add(-time.Nanosecond), from, to, to.Add(time.Nanosecond)} {
		require.NoError(t, s.WasteItems().Create(ctx, &models.WasteItem{ID: string(rune('a' + i)), UserID: "u1", ScannedAt: at}))
	}

	items, err := s.WasteItems().ListByUser(ctx, "u1", from, to)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
}

func TestTransactions_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, s.Transactions().Create(ctx, &models.EcoTransaction{ID: id, UserID: "u1"}))
	}

	all, _ := s.Transactions().ListByUser(ctx, "u1", 0)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, _ := s.Transactions().ListByUser(ctx, "u1", 2)
	assert.Len(t, two, 2)
}

func TestChallenges_ActiveAndParticipants(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Challenges().Create(ctx, &models.Challenge{ID: "ended", StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-time.Second)}))
	require.NoError(t, s.Challenges().Create(ctx, &models.Challenge{ID: "future", StartDate: now.Add(time.Second), EndDate: now.Add(48 * time.Hour)}))
	require.NoError(t, s.Challenges().Create(ctx, &models.Challenge{ID: "edge", StartDate: now, EndDate: now}))

	active, err := s.Challenges().ListActive(ctx, now, 20)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "edge", active[0].ID)

	require.NoError(t, s.Challenges().AddParticipant(ctx, "edge", "u1"))
	require.NoError(t, s.Challenges().AddParticipant(ctx, "edge", "u1"))
	c, _ := s.Challenges().Get(ctx, "edge")
	assert.Equal(t, []string{"u1"}, c.Participants)

	assert.ErrorIs(t, s.Challenges().AddParticipant(ctx, "missing", "u1"), apperr.ErrNotFound)
}

func TestMarketplace_ListAndMarkSold(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.MarketplaceItems().Create(ctx, &models.MarketplaceItem{ID: "old", Category: "decor", IsAvailable: true, CreatedAt: base}))
	require.NoError(t, s.MarketplaceItems().Create(ctx, &models.MarketplaceItem{ID: "new", Category: "craft", IsAvailable: true, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.MarketplaceItems().Create(ctx, &models.MarketplaceItem{ID: "gone", Category: "craft", IsAvailable: false, CreatedAt: base}))

	all, _ := s.MarketplaceItems().ListAvailable(ctx, "", 50)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].ID)

	craft, _ := s.MarketplaceItems().ListAvailable(ctx, "craft", 50)
	require.Len(t, craft, 1)

	require.NoError(t, s.MarketplaceItems().MarkSold(ctx, "new"))
	assert.ErrorIs(t, s.MarketplaceItems().MarkSold(ctx, "new"), apperr.ErrInvalidInput)
	assert.ErrorIs(t, s.MarketplaceItems().MarkSold(ctx, "nope"), apperr.ErrNotFound)
}
