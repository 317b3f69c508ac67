package challenges

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/services/ledger"
	"github.com/PREETHAM1590/waste-wise/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
	now     = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	clock   = func() time.Time { return now }
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	engine := ledger.New(discard, store, nil, nil, ledger.WithClock(clock))
	return New(discard, store, engine, clock), store
}

func validInput() CreateInput {
	return CreateInput{
		Title:        "Plastic Free Week",
		TargetCount:  2,
		RewardPoints: 100,
		StartDate:    now.Add(-24 * time.Hour),
		EndDate:      now.Add(24 * time.Hour),
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{name: "empty title", mutate: func(in *CreateInput) { in.Title = " " }},
		{name: "zero target", mutate: func(in *CreateInput) { in.TargetCount = 0 }},
		{name: "negative reward", mutate: func(in *CreateInput) { in.RewardPoints = -1 }},
		{name: "reward above cap", mutate: func(in *CreateInput) { in.RewardPoints = defaultMaxRewardPoints + 1 }},
		{name: "missing dates", mutate: func(in *CreateInput) { in.StartDate = time.Time{} }},
		{name: "end before start", mutate: func(in *CreateInput) { in.EndDate = in.StartDate.Add(-time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}

	c, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Empty(t, c.Participants)
}

func TestCreate_MaxRewardPoints(t *testing.T) {
	store := memory.New()
	engine := ledger.New(discard, store, nil, nil, ledger.WithClock(clock))
	svc := New(discard, store, engine, clock, WithMaxRewardPoints(50))

	in := validInput()
	in.RewardPoints = 50
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	in.RewardPoints = 51
	_, err = svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestListActiveAndStatus(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	active, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	future := validInput()
	future.StartDate, future.EndDate = now.Add(time.Hour), now.Add(48*time.Hour)
	pending, err := svc.Create(ctx, future)
	require.NoError(t, err)

	list, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	// Both ends of the window are inclusive.
	list, err = svc.ListActiveAt(ctx, pending.StartDate)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	status, err := svc.Status(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengePending, status)

	_, err = svc.Status(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestJoin(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Join(ctx, c.ID, "u1"))
	require.NoError(t, svc.Join(ctx, c.ID, "u1"))
	require.NoError(t, svc.Join(ctx, c.ID, "not-a-user"))

	got, err := store.Challenges().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "not-a-user"}, got.Participants)

	assert.ErrorIs(t, svc.Join(ctx, "missing", "u1"), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Join(ctx, c.ID, ""), apperr.ErrInvalidInput)
}

func TestClaimReward(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &models.User{ID: "u1", EcoPoints: 0}))

	c, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.ClaimReward(ctx, c.ID, "u1")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "not a participant")

	require.NoError(t, svc.Join(ctx, c.ID, "u1"))

	require.NoError(t, store.WasteItems().Create(ctx, &models.WasteItem{ID: "before", UserID: "u1", ScannedAt: c.StartDate.Add(-time.Second)}))
	require.NoError(t, store.WasteItems().Create(ctx, &models.WasteItem{ID: "w1", UserID: "u1", ScannedAt: c.StartDate}))
	_, err = svc.ClaimReward(ctx, c.ID, "u1")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "target not reached")

	require.NoError(t, store.WasteItems().Create(ctx, &models.WasteItem{ID: "w2", UserID: "u1", ScannedAt: now}))

	res, err := svc.ClaimReward(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.True(t, res.Granted)
	assert.Equal(t, int64(100), res.RewardPoints)
	assert.Equal(t, int64(100), res.Balance)
	assert.Equal(t, "challenge:"+c.ID, res.Achievement)

	again, err := svc.ClaimReward(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.False(t, again.Granted)
	assert.Zero(t, again.RewardPoints)
	assert.Equal(t, int64(100), again.Balance)

	u, _ := store.Users().Get(ctx, "u1")
	assert.Equal(t, []string{"challenge:" + c.ID}, u.Achievements)
	txs, _ := store.Transactions().ListByUser(ctx, "u1", 0)
	require.Len(t, txs, 1)
	assert.Equal(t, u.EcoPoints, txs[0].Amount)
}

func TestClaimReward_UnknownParticipantRollsBack(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, c.ID, "ghost"))
	for _, id := range []string{"w1", "w2"} {
		require.NoError(t, store.WasteItems().Create(ctx, &models.WasteItem{ID: id, UserID: "ghost", ScannedAt: now}))
	}

	_, err = svc.ClaimReward(ctx, c.ID, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.ClaimReward(ctx, "missing", "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
