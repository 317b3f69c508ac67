package marketplace

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/services/ledger"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
	"github.com/PREETHAM1590/waste-wise/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	svc    *Service
	store  *memory.Store
	engine *ledger.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	engine := ledger.New(discard, store, nil, nil)
	return &fixture{svc: New(discard, store, engine, nil), store: store, engine: engine}
}

// fund credits points through the ledger so balances stay consistent.
func (f *fixture) fund(t *testing.T, userID string, points int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Users().Create(ctx, &models.User{ID: userID, Name: userID}))
	if points == 0 {
		return
	}
	err := f.engine.Transact(ctx, "seed", userID, func(ctx context.Context, repos storage.Repositories) error {
		_, err := f.engine.Post(ctx, repos, userID, points, "seed")
		return err
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	u, err := f.store.Users().Get(context.Background(), userID)
	require.NoError(t, err)
	return u.EcoPoints
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "seller", 0)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, CreateInput{SellerID: "seller", Title: "Bottle lamp", Price: 120, Category: "decor"})
	require.NoError(t, err)
	assert.True(t, item.IsAvailable)

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{name: "no seller", in: CreateInput{Title: "x", Price: 1, Category: "c"}, wantErr: apperr.ErrInvalidInput},
		{name: "no title", in: CreateInput{SellerID: "seller", Price: 1, Category: "c"}, wantErr: apperr.ErrInvalidInput},
		{name: "no category", in: CreateInput{SellerID: "seller", Title: "x", Price: 1}, wantErr: apperr.ErrInvalidInput},
		{name: "free item", in: CreateInput{SellerID: "seller", Title: "x", Category: "c"}, wantErr: apperr.ErrInvalidInput},
		{name: "unknown seller", in: CreateInput{SellerID: "ghost", Title: "x", Price: 1, Category: "c"}, wantErr: apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "seller", 0)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{SellerID: "seller", Title: "Lamp", Price: 10, Category: "decor"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateInput{SellerID: "seller", Title: "Bag", Price: 10, Category: "fashion"})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	decor, err := f.svc.List(ctx, "decor")
	require.NoError(t, err)
	require.Len(t, decor, 1)
	assert.Equal(t, "Lamp", decor[0].Title)
}

func TestPurchase(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "seller", 0)
	f.fund(t, "buyer", 200)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, CreateInput{SellerID: "seller", Title: "Lamp", Price: 120, Category: "decor"})
	require.NoError(t, err)

	receipt, err := f.svc.Purchase(ctx, item.ID, "buyer")
	require.NoError(t, err)
	assert.Equal(t, int64(80), receipt.BuyerBalance)
	assert.False(t, receipt.Item.IsAvailable)

	assert.Equal(t, int64(80), f.balance(t, "buyer"))
	assert.Equal(t, int64(120), f.balance(t, "seller"))

	txs, _ := f.store.Transactions().ListByUser(ctx, "buyer", 1)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionSpent, txs[0].Kind)
	assert.Equal(t, int64(-120), txs[0].Amount)

	_, err = f.svc.Purchase(ctx, item.ID, "buyer")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "already sold")

	list, _ := f.svc.List(ctx, "")
	assert.Empty(t, list)
}

func TestPurchase_Rejections(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "seller", 50)
	f.fund(t, "poor", 10)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, CreateInput{SellerID: "seller", Title: "Lamp", Price: 30, Category: "decor"})
	require.NoError(t, err)

	_, err = f.svc.Purchase(ctx, item.ID, "poor")
	assert.ErrorIs(t, err, apperr.ErrInsufficientPoints)

	_, err = f.svc.Purchase(ctx, item.ID, "seller")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.Purchase(ctx, "missing", "poor")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Purchase(ctx, item.ID, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, int64(10), f.balance(t, "poor"))
	assert.Equal(t, int64(50), f.balance(t, "seller"))
	got, _ := f.store.MarketplaceItems().Get(ctx, item.ID)
	assert.True(t, got.IsAvailable)
}
