package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/ledger"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

func newAssetService(t *testing.T) (*AssetService, *TransactionService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	engine := ledger.NewEngine(st, zerolog.Nop())
	return NewAssetService(st, engine, zerolog.Nop()),
		NewTransactionService(st, engine, nil, zerolog.Nop()),
		st
}

func TestCreateAsset_Defaults(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAssetService(t)

	asset := &models.Asset{OwnerID: "owner-1", Symbol: "VOO"}
	require.NoError(t, svc.CreateAsset(ctx, asset))
	assert.Equal(t, 1.0, asset.SplitAdjustmentFactor)
	assert.Equal(t, 50.0, asset.SwingHoldRatio)
	assert.NotEmpty(t, asset.ID)
}

func TestCreateAsset_DuplicateSymbolRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAssetService(t)

	require.NoError(t, svc.CreateAsset(ctx, &models.Asset{OwnerID: "owner-1", Symbol: "VOO"}))
	err := svc.CreateAsset(ctx, &models.Asset{OwnerID: "owner-1", Symbol: "VOO"})
	assert.Error(t, err)

	// Symbols are unique per owner, not globally.
	assert.NoError(t, svc.CreateAsset(ctx, &models.Asset{OwnerID: "owner-2", Symbol: "VOO"}))
}

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	svc, txnSvc, _ := newAssetService(t)

	asset := &models.Asset{OwnerID: "owner-1", Symbol: "VOO", SwingTakeProfit: 10, HoldTakeProfit: 20, SwingHoldRatio: 50}
	require.NoError(t, svc.CreateAsset(ctx, asset))
	require.NoError(t, txnSvc.CreateTransaction(ctx, newBuy(asset.ID, day(1), 100, 10, models.AllocationSplit)))
	require.NoError(t, txnSvc.CreateTransaction(ctx, &models.Transaction{
		AssetID: asset.ID, Date: day(2), Action: models.ActionDividend, Amount: fptr(55),
	}))

	summary, err := svc.GetSummary(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Wallets, 2)
	assert.Equal(t, 10.0, summary.RemainingShares)
	assert.Equal(t, 1000.0, summary.TotalInvestment)
	assert.Equal(t, 1000.0, summary.Asset.TotalOutOfPocket)
	assert.Equal(t, 55.0, summary.Asset.CurrentCashBalance)
	assert.Equal(t, 5.5, summary.Roic)
}

func TestMigrateAllCashFlows(t *testing.T) {
	ctx := context.Background()
	svc, txnSvc, st := newAssetService(t)

	first := &models.Asset{OwnerID: "owner-1", Symbol: "AAA", SwingHoldRatio: 50}
	second := &models.Asset{OwnerID: "owner-2", Symbol: "BBB", SwingHoldRatio: 50}
	require.NoError(t, svc.CreateAsset(ctx, first))
	require.NoError(t, svc.CreateAsset(ctx, second))
	require.NoError(t, txnSvc.CreateTransaction(ctx, newBuy(first.ID, day(1), 10, 10, models.AllocationSwing)))

	// Drift one asset's stored totals; the pass restores them.
	require.NoError(t, st.UpdateAsset(ctx, first.ID, map[string]interface{}{"total_out_of_pocket": 42.0}))

	require.NoError(t, svc.MigrateAllCashFlows(ctx))

	stored, err := st.GetAsset(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.TotalOutOfPocket)
}
