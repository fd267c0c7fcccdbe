package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func buyTxn(d time.Time, price, qty float64) models.Transaction {
	return models.Transaction{Action: models.ActionBuy, Date: d, Price: &price, Quantity: &qty}
}

func sellTxn(d time.Time, price, qty float64) models.Transaction {
	return models.Transaction{Action: models.ActionSell, Date: d, Price: &price, Quantity: &qty}
}

func divTxn(d time.Time, amount float64) models.Transaction {
	return models.Transaction{Action: models.ActionDividend, Date: d, Amount: &amount}
}

func slpTxn(d time.Time, amount float64) models.Transaction {
	return models.Transaction{Action: models.ActionSLP, Date: d, Amount: &amount}
}

func TestReplayCashFlow_CashFundsABuy(t *testing.T) {
	txns := []models.Transaction{
		buyTxn(day(1), 100, 10), // 1000 out of pocket
		divTxn(day(2), 100),
		slpTxn(day(3), 15),
		buyTxn(day(4), 105, 5), // 525: draws the 115 balance, 410 new OOP
	}

	totals := ReplayCashFlow(txns)
	assert.Equal(t, 1410.0, totals.TotalOutOfPocket)
	assert.Equal(t, 0.0, totals.CurrentCashBalance)
	assert.Equal(t, 4, totals.Processed)
	assert.Equal(t, 0, totals.Skipped)
}

func TestReplayCashFlow_SellProceedsFundBuys(t *testing.T) {
	txns := []models.Transaction{
		buyTxn(day(1), 50, 10),  // oop 500
		sellTxn(day(2), 60, 10), // balance 600
		buyTxn(day(3), 55, 10),  // 550 fully funded from balance
	}
	totals := ReplayCashFlow(txns)
	assert.Equal(t, 500.0, totals.TotalOutOfPocket)
	assert.Equal(t, 50.0, totals.CurrentCashBalance)
}

func TestReplayCashFlow_Deterministic(t *testing.T) {
	txns := []models.Transaction{
		buyTxn(day(3), 10, 1),
		divTxn(day(1), 5),
		buyTxn(day(2), 20, 2),
	}
	first := ReplayCashFlow(txns)
	second := ReplayCashFlow(txns)
	assert.Equal(t, first, second)

	// Input order must not matter, only (date, createdAt).
	reversed := []models.Transaction{txns[2], txns[1], txns[0]}
	assert.Equal(t, first, ReplayCashFlow(reversed))
}

func TestReplayCashFlow_SameDayOrderedByCreatedAt(t *testing.T) {
	early := buyTxn(day(1), 100, 1)
	early.CreatedAt = day(1).Add(9 * time.Hour)
	late := sellTxn(day(1), 110, 1)
	late.CreatedAt = day(1).Add(10 * time.Hour)

	// Sell after buy on the same day: 100 OOP, 110 balance.
	totals := ReplayCashFlow([]models.Transaction{late, early})
	assert.Equal(t, 100.0, totals.TotalOutOfPocket)
	assert.Equal(t, 110.0, totals.CurrentCashBalance)
}

func TestReplayCashFlow_SkipsMalformedRows(t *testing.T) {
	price := 100.0
	txns := []models.Transaction{
		buyTxn(day(1), 100, 10),
		{Action: models.ActionBuy, Date: day(2), Price: &price},     // no quantity
		{Action: models.ActionSell, Date: day(3)},                   // no price/quantity
		{Action: models.ActionDividend, Date: day(4), Amount: nil},  // nil amount is a no-op
		divTxn(day(5), 50),
	}
	totals := ReplayCashFlow(txns)
	assert.Equal(t, 1000.0, totals.TotalOutOfPocket)
	assert.Equal(t, 50.0, totals.CurrentCashBalance)
	assert.Equal(t, 2, totals.Processed)
	assert.Equal(t, 3, totals.Skipped)
}

func TestReplayCashFlow_StockSplitMovesNoCash(t *testing.T) {
	ratio := 2.0
	txns := []models.Transaction{
		buyTxn(day(1), 100, 10),
		{Action: models.ActionStockSplit, Date: day(2), SplitRatio: &ratio},
	}
	totals := ReplayCashFlow(txns)
	assert.Equal(t, 1000.0, totals.TotalOutOfPocket)
	assert.Equal(t, 0.0, totals.CurrentCashBalance)
	assert.Equal(t, 2, totals.Processed)
}

func TestReplayCashFlow_NeverNegative(t *testing.T) {
	// A sell-heavy or empty history must still clamp at zero.
	totals := ReplayCashFlow(nil)
	assert.Equal(t, 0.0, totals.TotalOutOfPocket)
	assert.Equal(t, 0.0, totals.CurrentCashBalance)

	txns := []models.Transaction{
		sellTxn(day(1), 10, 5),
		buyTxn(day(2), 10, 5),
	}
	totals = ReplayCashFlow(txns)
	assert.GreaterOrEqual(t, totals.TotalOutOfPocket, 0.0)
	assert.GreaterOrEqual(t, totals.CurrentCashBalance, 0.0)
	assert.Equal(t, 0.0, totals.TotalOutOfPocket) // fully funded by the sell
}

func TestMigrateStockCashFlow_IdempotentFromDriftedState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	engine := NewEngine(st, zerolog.Nop())

	asset := &models.Asset{OwnerID: "owner-1", Symbol: "AAPL", SplitAdjustmentFactor: 1}
	require.NoError(t, st.CreateAsset(ctx, asset))

	for i, txn := range []models.Transaction{
		buyTxn(day(1), 100, 10),
		divTxn(day(2), 100),
		slpTxn(day(3), 15),
		buyTxn(day(4), 105, 5),
	} {
		txn.AssetID = asset.ID
		txn.CreatedAt = day(1).Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.CreateTransaction(ctx, &txn))
	}

	// Drift the stored state; migration must not care.
	require.NoError(t, st.UpdateAsset(ctx, asset.ID, map[string]interface{}{
		"total_out_of_pocket":  9999.0,
		"current_cash_balance": 123.0,
	}))

	first, err := engine.MigrateStockCashFlow(ctx, asset.ID)
	require.NoError(t, err)
	second, err := engine.MigrateStockCashFlow(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1410.0, first.TotalOutOfPocket)
	assert.Equal(t, 0.0, first.CurrentCashBalance)

	stored, err := st.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1410.0, stored.TotalOutOfPocket)
	assert.Equal(t, 0.0, stored.CurrentCashBalance)
}

func TestROIC(t *testing.T) {
	assert.Equal(t, 50.0, ROIC(500, 1000))
	assert.Equal(t, 0.0, ROIC(500, 0))
	assert.Equal(t, 33.33, ROIC(1, 3))
}
