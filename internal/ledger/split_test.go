package ledger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

func seedWallet(t *testing.T, st *store.MemoryStore, asset *models.Asset, price, shares, investment float64) *models.Wallet {
	t.Helper()
	w := &models.Wallet{
		AssetID:         asset.ID,
		OwnerID:         asset.OwnerID,
		BuyPrice:        price,
		WalletType:      models.WalletTypeSwing,
		TotalSharesQty:  shares,
		TotalInvestment: investment,
		RemainingShares: shares,
		TpValue:         CalculateTargetPrice(price, 10, nil),
	}
	require.NoError(t, st.CreateWallet(context.Background(), w))
	return w
}

func TestProcessStockSplit_RoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, st, asset := newTestEngine(t)
	testPrice := 120.0
	require.NoError(t, st.UpdateAsset(ctx, asset.ID, map[string]interface{}{"test_price": &testPrice}))

	w := seedWallet(t, st, asset, 100, 10, 1000)

	result, err := engine.ProcessStockSplit(ctx, SplitParams{
		AssetID:        asset.ID,
		OwnerID:        asset.OwnerID,
		SplitDate:      day(10),
		SplitRatio:     2,
		PreSplitPrice:  100,
		PostSplitPrice: 50,
	})
	require.NoError(t, err)
	assert.True(t, result.Recorded)
	assert.True(t, result.AssetUpdated)
	assert.Equal(t, 1, result.WalletsAdjusted)

	after, err := st.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, after.BuyPrice)
	assert.Equal(t, 20.0, after.TotalSharesQty)
	assert.Equal(t, 20.0, after.RemainingShares)
	assert.Equal(t, 1000.0, after.TotalInvestment) // same dollars, more shares
	assert.Equal(t, 55.0, after.TpValue)

	storedAsset, err := st.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, storedAsset.SplitAdjustmentFactor)
	require.NotNil(t, storedAsset.TestPrice)
	assert.Equal(t, 60.0, *storedAsset.TestPrice)

	// The split record itself is permanent and never rescaled.
	txns, err := st.ListTransactions(ctx, asset.ID, &store.TxnFilter{Action: models.ActionStockSplit})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, 2.0, *txns[0].SplitRatio)
	assert.Equal(t, 100.0, *txns[0].PreSplitPrice)
	assert.Equal(t, 50.0, *txns[0].PostSplitPrice)
	require.NotNil(t, txns[0].SplitCompletedAt)
}

func TestProcessStockSplit_RescalesSoldShares(t *testing.T) {
	ctx := context.Background()
	engine, st, asset := newTestEngine(t)

	w := &models.Wallet{
		AssetID:         asset.ID,
		OwnerID:         asset.OwnerID,
		BuyPrice:        100,
		WalletType:      models.WalletTypeHold,
		TotalSharesQty:  10,
		TotalInvestment: 1000,
		SharesSold:      4,
		RemainingShares: 6,
		SellTxnCount:    1,
	}
	require.NoError(t, st.CreateWallet(ctx, w))

	_, err := engine.ProcessStockSplit(ctx, SplitParams{
		AssetID:        asset.ID,
		OwnerID:        asset.OwnerID,
		SplitDate:      day(10),
		SplitRatio:     4,
		PreSplitPrice:  100,
		PostSplitPrice: 25,
	})
	require.NoError(t, err)

	after, err := st.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, after.BuyPrice)
	assert.Equal(t, 40.0, after.TotalSharesQty)
	assert.Equal(t, 16.0, after.SharesSold)
	assert.Equal(t, 24.0, after.RemainingShares)
	// Conservation holds through the rescale.
	assert.InDelta(t, after.TotalSharesQty-after.SharesSold, after.RemainingShares, ShareEpsilon)
}

func TestProcessStockSplit_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	engine, _, asset := newTestEngine(t)

	var invalid *InvalidInputError
	_, err := engine.ProcessStockSplit(ctx, SplitParams{AssetID: asset.ID, SplitDate: day(1), SplitRatio: 1, PreSplitPrice: 100, PostSplitPrice: 100})
	assert.ErrorAs(t, err, &invalid)

	_, err = engine.ProcessStockSplit(ctx, SplitParams{AssetID: asset.ID, SplitDate: day(1), SplitRatio: 2, PreSplitPrice: 0, PostSplitPrice: 50})
	assert.ErrorAs(t, err, &invalid)
}

func TestResumeStockSplit_FinishesPartialAdjustment(t *testing.T) {
	ctx := context.Background()
	engine, st, asset := newTestEngine(t)

	// A split that was recorded but died before touching the wallets:
	// the record exists, no completion stamp, wallets unscaled.
	ratio, pre, post := 2.0, 100.0, 50.0
	splitTxn := &models.Transaction{
		AssetID:        asset.ID,
		OwnerID:        asset.OwnerID,
		Date:           day(10),
		Action:         models.ActionStockSplit,
		SplitRatio:     &ratio,
		PreSplitPrice:  &pre,
		PostSplitPrice: &post,
	}
	require.NoError(t, st.CreateTransaction(ctx, splitTxn))

	adjusted := seedWallet(t, st, asset, 100, 10, 1000)
	// One wallet was already rescaled in the failed run and carries the
	// split stamp.
	require.NoError(t, st.UpdateWallet(ctx, adjusted.ID, map[string]interface{}{
		"buy_price":         50.0,
		"total_shares_qty":  20.0,
		"remaining_shares":  20.0,
		"last_split_txn_id": splitTxn.ID,
	}))
	pending := seedWallet(t, st, asset, 110, 4, 440)

	result, err := engine.ResumeStockSplit(ctx, asset.ID, splitTxn.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.WalletsAdjusted)
	assert.Equal(t, 1, result.WalletsSkipped)
	assert.True(t, result.AssetUpdated)

	afterAdjusted, err := st.GetWallet(ctx, adjusted.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, afterAdjusted.BuyPrice) // not halved twice

	afterPending, err := st.GetWallet(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, 55.0, afterPending.BuyPrice)
	assert.Equal(t, 8.0, afterPending.TotalSharesQty)

	storedAsset, err := st.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, storedAsset.SplitAdjustmentFactor)

	// A completed split resumes as a no-op.
	again, err := engine.ResumeStockSplit(ctx, asset.ID, splitTxn.ID)
	require.NoError(t, err)
	assert.True(t, again.AssetUpdated)
	assert.Equal(t, 0, again.WalletsAdjusted)

	finalAsset, err := st.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, finalAsset.SplitAdjustmentFactor)
}

func TestResumeStockSplit_RejectsWrongTransaction(t *testing.T) {
	ctx := context.Background()
	engine, st, asset := newTestEngine(t)

	price, qty := 100.0, 5.0
	buy := &models.Transaction{AssetID: asset.ID, Date: day(1), Action: models.ActionBuy, Price: &price, Quantity: &qty}
	require.NoError(t, st.CreateTransaction(ctx, buy))

	var invalid *InvalidInputError
	_, err := engine.ResumeStockSplit(ctx, asset.ID, buy.ID)
	assert.ErrorAs(t, err, &invalid)
}

func TestProcessStockSplit_FailureAfterRecordIsRecoverable(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	failing := &walletUpdateFailingStore{PositionStore: st, fail: true}
	engine := NewEngine(failing, zerolog.Nop())

	asset := &models.Asset{OwnerID: "owner-1", Symbol: "AAPL", SwingTakeProfit: 10, HoldTakeProfit: 20, SplitAdjustmentFactor: 1}
	require.NoError(t, st.CreateAsset(ctx, asset))
	seedWallet(t, st, asset, 100, 10, 1000)

	result, err := engine.ProcessStockSplit(ctx, SplitParams{
		AssetID:        asset.ID,
		OwnerID:        asset.OwnerID,
		SplitDate:      day(10),
		SplitRatio:     2,
		PreSplitPrice:  100,
		PostSplitPrice: 50,
	})
	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	require.NotNil(t, result)
	assert.True(t, result.Recorded)
	assert.True(t, result.Incomplete())
	require.NotEmpty(t, result.SplitTxnID)

	// The failure clears and the recorded split resumes to completion.
	failing.fail = false
	resumed, err := engine.ResumeStockSplit(ctx, asset.ID, result.SplitTxnID)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.WalletsAdjusted)
	assert.True(t, resumed.AssetUpdated)
}

func TestResumeStockSplit_StampFailureDoesNotCompoundFactor(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	failing := &stampFailingStore{PositionStore: st}
	engine := NewEngine(failing, zerolog.Nop())

	testPrice := 120.0
	asset := &models.Asset{
		OwnerID:               "owner-1",
		Symbol:                "AAPL",
		SwingTakeProfit:       10,
		HoldTakeProfit:        20,
		SplitAdjustmentFactor: 1,
		TestPrice:             &testPrice,
	}
	require.NoError(t, st.CreateAsset(ctx, asset))
	seedWallet(t, st, asset, 100, 10, 1000)

	result, err := engine.ProcessStockSplit(ctx, SplitParams{
		AssetID:        asset.ID,
		OwnerID:        asset.OwnerID,
		SplitDate:      day(10),
		SplitRatio:     2,
		PreSplitPrice:  100,
		PostSplitPrice: 50,
	})
	require.NoError(t, err)
	assert.True(t, result.AssetUpdated)

	// The completion stamp never landed, so the split still looks
	// resumable. Resuming must re-check the wallets and leave the asset
	// untouched, not rescale it a second time.
	resumed, err := engine.ResumeStockSplit(ctx, asset.ID, result.SplitTxnID)
	require.NoError(t, err)
	assert.Equal(t, 0, resumed.WalletsAdjusted)
	assert.Equal(t, 1, resumed.WalletsSkipped)
	assert.True(t, resumed.AssetUpdated)

	stored, err := st.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stored.SplitAdjustmentFactor)
	require.NotNil(t, stored.TestPrice)
	assert.Equal(t, 60.0, *stored.TestPrice)
}

// stampFailingStore refuses split completion stamps and passes everything
// else through.
type stampFailingStore struct {
	store.PositionStore
}

func (s *stampFailingStore) UpdateTransaction(ctx context.Context, id string, fields map[string]interface{}) error {
	if _, ok := fields["split_completed_at"]; ok {
		return assert.AnError
	}
	return s.PositionStore.UpdateTransaction(ctx, id, fields)
}

// walletUpdateFailingStore fails wallet updates until told otherwise.
type walletUpdateFailingStore struct {
	store.PositionStore
	fail bool
}

func (s *walletUpdateFailingStore) UpdateWallet(ctx context.Context, id string, fields map[string]interface{}) error {
	if s.fail {
		return assert.AnError
	}
	return s.PositionStore.UpdateWallet(ctx, id, fields)
}
