package ledger

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
)

// CashFlowTotals is the outcome of replaying a transaction history.
// TotalOutOfPocket is the high-water mark of capital the owner actually
// contributed; CurrentCashBalance is uninvested proceeds available to fund
// future buys. Both are clamped to be non-negative.
type CashFlowTotals struct {
	TotalOutOfPocket   float64 `json:"totalOutOfPocket"`
	CurrentCashBalance float64 `json:"currentCashBalance"`
	Processed          int     `json:"processed"`
	Skipped            int     `json:"skipped"`
}

// ReplayCashFlow folds an asset's transaction history in chronological
// order into cash-flow totals. Pure: the input slice is not mutated and no
// I/O happens.
//
// Ordering is by date, then createdAt, then ID, so same-day events replay
// in insertion order and the fold is deterministic across runs.
//
// A buy draws on the running balance first and only the shortfall counts
// as new out-of-pocket capital. Sells, dividends and SLP payments credit
// the balance. Stock splits move no cash. Transactions missing their
// required numeric field are skipped and counted, never fatal: one
// malformed historical row must not block recalculating the rest.
func ReplayCashFlow(txns []models.Transaction) CashFlowTotals {
	sorted := make([]models.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var totals CashFlowTotals
	oop, balance := 0.0, 0.0

	for _, txn := range sorted {
		switch txn.Action {
		case models.ActionBuy:
			if txn.Price == nil || txn.Quantity == nil {
				totals.Skipped++
				continue
			}
			need := *txn.Price * *txn.Quantity
			if balance >= need {
				balance -= need
			} else {
				oop += need - balance
				balance = 0
			}
		case models.ActionSell:
			if txn.Price == nil || txn.Quantity == nil {
				totals.Skipped++
				continue
			}
			balance += *txn.Price * *txn.Quantity
		case models.ActionDividend, models.ActionSLP:
			if txn.Amount == nil {
				totals.Skipped++
				continue
			}
			balance += *txn.Amount
		case models.ActionStockSplit:
			// No cash moves.
		default:
			log.Warn().Str("txn_id", txn.ID).Str("action", string(txn.Action)).Msg("unknown action skipped during replay")
			totals.Skipped++
			continue
		}
		if oop < 0 {
			oop = 0
		}
		if balance < 0 {
			balance = 0
		}
		totals.Processed++
	}

	totals.TotalOutOfPocket = RoundCurrency(oop)
	totals.CurrentCashBalance = RoundCurrency(balance)
	return totals
}

// ROIC is the return on invested capital in percent, zero when nothing is
// out of pocket.
func ROIC(balance, oop float64) float64 {
	if oop <= 0 {
		return 0
	}
	return RoundPercent(balance / oop * 100)
}

// RecomputeCashFlow replays an asset's full history and writes the totals
// back to the asset document. Used after every transaction mutation.
func (e *Engine) RecomputeCashFlow(ctx context.Context, assetID string) (*CashFlowTotals, error) {
	txns, err := e.store.ListTransactions(ctx, assetID, nil)
	if err != nil {
		return nil, persistErr("transaction list", err)
	}
	totals := ReplayCashFlow(txns)
	err = e.store.UpdateAsset(ctx, assetID, map[string]interface{}{
		"total_out_of_pocket":  totals.TotalOutOfPocket,
		"current_cash_balance": totals.CurrentCashBalance,
	})
	if err != nil {
		return nil, persistErr("cash flow write", err)
	}
	return &totals, nil
}

// MigrateStockCashFlow resets the asset's stored totals to zero before
// refetching and replaying the full history, so the result is identical no
// matter how far the stored state had drifted.
func (e *Engine) MigrateStockCashFlow(ctx context.Context, assetID string) (*CashFlowTotals, error) {
	err := e.store.UpdateAsset(ctx, assetID, map[string]interface{}{
		"total_out_of_pocket":  0.0,
		"current_cash_balance": 0.0,
	})
	if err != nil {
		return nil, persistErr("cash flow reset", err)
	}

	totals, err := e.RecomputeCashFlow(ctx, assetID)
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("asset_id", assetID).
		Float64("total_out_of_pocket", totals.TotalOutOfPocket).
		Float64("current_cash_balance", totals.CurrentCashBalance).
		Int("processed", totals.Processed).
		Int("skipped", totals.Skipped).
		Msg("cash flow migration complete")
	return totals, nil
}
