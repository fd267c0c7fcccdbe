package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
)

func TestMemoryStore_WalletLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	w := &models.Wallet{AssetID: "a1", OwnerID: "o1", BuyPrice: 100, WalletType: models.WalletTypeSwing, TotalSharesQty: 10, RemainingShares: 10}
	require.NoError(t, st.CreateWallet(ctx, w))
	require.NotEmpty(t, w.ID)

	found, err := st.FindWallet(ctx, "a1", 100, models.WalletTypeSwing)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, w.ID, found.ID)

	missing, err := st.FindWallet(ctx, "a1", 99, models.WalletTypeSwing)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, st.UpdateWallet(ctx, w.ID, map[string]interface{}{"remaining_shares": 4.0, "sell_txn_count": 1}))
	got, err := st.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.RemainingShares)
	assert.Equal(t, 1, got.SellTxnCount)

	require.NoError(t, st.DeleteWallet(ctx, w.ID))
	_, err = st.GetWallet(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UnknownFieldRejected(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	w := &models.Wallet{AssetID: "a1", BuyPrice: 100, WalletType: models.WalletTypeHold}
	require.NoError(t, st.CreateWallet(ctx, w))
	assert.Error(t, st.UpdateWallet(ctx, w.ID, map[string]interface{}{"no_such_field": 1.0}))
}

func TestMemoryStore_TransactionsSortedForReplay(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	later := models.Transaction{AssetID: "a1", Action: models.ActionBuy, Date: base.AddDate(0, 0, 2), CreatedAt: base}
	earlier := models.Transaction{AssetID: "a1", Action: models.ActionSell, Date: base, CreatedAt: base.Add(time.Hour)}
	sameDay := models.Transaction{AssetID: "a1", Action: models.ActionDividend, Date: base, CreatedAt: base.Add(2 * time.Hour)}
	for _, txn := range []*models.Transaction{&later, &earlier, &sameDay} {
		require.NoError(t, st.CreateTransaction(ctx, txn))
	}

	list, err := st.ListTransactions(ctx, "a1", nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, earlier.ID, list[0].ID)
	assert.Equal(t, sameDay.ID, list[1].ID)
	assert.Equal(t, later.ID, list[2].ID)

	sells, err := st.ListTransactions(ctx, "a1", &TxnFilter{Action: models.ActionSell})
	require.NoError(t, err)
	require.Len(t, sells, 1)
	assert.Equal(t, earlier.ID, sells[0].ID)
}

func TestMemoryStore_CopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	a := &models.Asset{OwnerID: "o1", Symbol: "AAPL", SplitAdjustmentFactor: 1}
	require.NoError(t, st.CreateAsset(ctx, a))

	got, err := st.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	got.Symbol = "MUTATED"

	again, err := st.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", again.Symbol)
}
