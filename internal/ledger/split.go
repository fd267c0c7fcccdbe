package ledger

import (
	"context"
	"math"
	"time"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

// SplitParams describes one stock split event.
type SplitParams struct {
	AssetID        string
	OwnerID        string
	SplitDate      time.Time
	SplitRatio     float64
	PreSplitPrice  float64
	PostSplitPrice float64
}

// SplitResult reports how far a split got. A recorded split with
// incomplete wallet adjustment is recoverable through ResumeStockSplit;
// nothing recorded means the whole operation can simply be retried.
type SplitResult struct {
	SplitTxnID      string `json:"splitTxnId"`
	Recorded        bool   `json:"recorded"`
	WalletsTotal    int    `json:"walletsTotal"`
	WalletsAdjusted int    `json:"walletsAdjusted"`
	WalletsSkipped  int    `json:"walletsSkipped"`
	AssetUpdated    bool   `json:"assetUpdated"`
}

// Incomplete reports whether the split was recorded but not fully applied.
func (r *SplitResult) Incomplete() bool {
	return r.Recorded && !r.AssetUpdated
}

// ProcessStockSplit records a split and rescales all dependent state in
// three ordered steps: append the StockSplit transaction, rescale every
// wallet of the asset, then update the asset's cumulative factor and any
// manual test price.
//
// The store offers no multi-document transaction, so a failure after step
// one leaves a recorded split with partially adjusted wallets. The
// returned SplitResult says exactly which step failed; ResumeStockSplit
// finishes the remainder without touching wallets already rescaled.
func (e *Engine) ProcessStockSplit(ctx context.Context, p SplitParams) (*SplitResult, error) {
	if p.SplitRatio <= 1 || math.IsNaN(p.SplitRatio) || math.IsInf(p.SplitRatio, 0) {
		return nil, &InvalidInputError{Reason: "split ratio must be a finite number greater than 1"}
	}
	if p.PreSplitPrice <= 0 || p.PostSplitPrice <= 0 {
		return nil, &InvalidInputError{Reason: "pre- and post-split prices must be positive"}
	}

	asset, err := e.store.GetAsset(ctx, p.AssetID)
	if err != nil {
		return nil, persistErr("asset lookup", err)
	}

	result := &SplitResult{}

	// Step 1: the permanent historical record. Never itself rescaled.
	ratio := p.SplitRatio
	pre := p.PreSplitPrice
	post := p.PostSplitPrice
	splitTxn := &models.Transaction{
		AssetID:        p.AssetID,
		OwnerID:        p.OwnerID,
		Date:           p.SplitDate,
		Action:         models.ActionStockSplit,
		SplitRatio:     &ratio,
		PreSplitPrice:  &pre,
		PostSplitPrice: &post,
	}
	if err := e.store.CreateTransaction(ctx, splitTxn); err != nil {
		return result, persistErr("split record create", err)
	}
	result.SplitTxnID = splitTxn.ID
	result.Recorded = true

	if err := e.rescaleWallets(ctx, asset, splitTxn, result); err != nil {
		return result, err
	}
	if err := e.applySplitToAsset(ctx, asset, splitTxn, result); err != nil {
		return result, err
	}

	e.log.Info().
		Str("asset_id", p.AssetID).
		Float64("split_ratio", p.SplitRatio).
		Int("wallets_adjusted", result.WalletsAdjusted).
		Msg("stock split applied")
	return result, nil
}

// ResumeStockSplit finishes a split whose wallet adjustment or asset
// update previously failed. It is safe to call repeatedly: wallets stamped
// with the split transaction ID are skipped, and a split already marked
// complete is a no-op.
func (e *Engine) ResumeStockSplit(ctx context.Context, assetID, splitTxnID string) (*SplitResult, error) {
	splitTxn, err := e.store.GetTransaction(ctx, splitTxnID)
	if err != nil {
		return nil, persistErr("split record lookup", err)
	}
	if splitTxn.Action != models.ActionStockSplit || splitTxn.AssetID != assetID {
		return nil, &InvalidInputError{Reason: "transaction is not a stock split for this asset"}
	}

	result := &SplitResult{SplitTxnID: splitTxnID, Recorded: true}
	if splitTxn.SplitCompletedAt != nil {
		result.AssetUpdated = true
		return result, nil
	}

	asset, err := e.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, persistErr("asset lookup", err)
	}
	if err := e.rescaleWallets(ctx, asset, splitTxn, result); err != nil {
		return result, err
	}
	if err := e.applySplitToAsset(ctx, asset, splitTxn, result); err != nil {
		return result, err
	}
	return result, nil
}

// rescaleWallets divides buy prices and multiplies share counts by the
// split ratio, one wallet at a time. Total investment is untouched: the
// same dollars now buy more shares at a lower price. Writes run
// sequentially so a failure leaves a well-defined prefix adjusted.
func (e *Engine) rescaleWallets(ctx context.Context, asset *models.Asset, splitTxn *models.Transaction, result *SplitResult) error {
	ratio := *splitTxn.SplitRatio

	wallets, err := e.store.ListWallets(ctx, asset.ID)
	if err != nil {
		return persistErr("wallet list", err)
	}
	result.WalletsTotal = len(wallets)

	// Wallets rescaled before the stamp field existed have no stamp but
	// already sit at post-split scale; prices below this floor cannot be
	// pre-split prices for this asset.
	sanityFloor := *splitTxn.PostSplitPrice / (ratio * math.Max(asset.SplitAdjustmentFactor, 1))

	for _, w := range wallets {
		if w.LastSplitTxnID == splitTxn.ID {
			result.WalletsSkipped++
			continue
		}
		if w.BuyPrice < sanityFloor {
			e.log.Warn().
				Str("wallet_id", w.ID).
				Float64("buy_price", w.BuyPrice).
				Float64("sanity_floor", sanityFloor).
				Msg("wallet already below pre-split price floor, skipping rescale")
			result.WalletsSkipped++
			continue
		}

		err := e.store.UpdateWallet(ctx, w.ID, map[string]interface{}{
			"buy_price":         RoundPrice(w.BuyPrice / ratio),
			"total_shares_qty":  RoundShares(w.TotalSharesQty * ratio),
			"remaining_shares":  RoundShares(w.RemainingShares * ratio),
			"shares_sold":       RoundShares(w.SharesSold * ratio),
			"tp_value":          RoundPrice(w.TpValue / ratio),
			"last_split_txn_id": splitTxn.ID,
		})
		if err != nil {
			e.log.Error().Err(err).
				Str("wallet_id", w.ID).
				Int("adjusted_so_far", result.WalletsAdjusted).
				Msg("split recorded but wallet rescale incomplete")
			return persistErr("wallet rescale", err)
		}
		result.WalletsAdjusted++
	}
	return nil
}

// applySplitToAsset writes the asset's cumulative factor and rescales the
// manual price override. The factor is recomputed from the split records
// rather than multiplied in place, and the override is only divided when
// the stored factor shows it still sits at pre-split scale, so reaching
// this step twice for the same split cannot compound either value.
func (e *Engine) applySplitToAsset(ctx context.Context, asset *models.Asset, splitTxn *models.Transaction, result *SplitResult) error {
	ratio := *splitTxn.SplitRatio

	factor, err := e.appliedSplitFactor(ctx, asset.ID, splitTxn.ID)
	if err != nil {
		return persistErr("split history list", err)
	}

	fields := map[string]interface{}{
		"split_adjustment_factor": factor,
	}
	if asset.TestPrice != nil && !NearlyEqual(asset.SplitAdjustmentFactor, factor, PriceEpsilon) {
		adjusted := RoundPrice(*asset.TestPrice / ratio)
		fields["test_price"] = &adjusted
	}
	if err := e.store.UpdateAsset(ctx, asset.ID, fields); err != nil {
		return persistErr("asset split update", err)
	}

	now := time.Now()
	if err := e.store.UpdateTransaction(ctx, splitTxn.ID, map[string]interface{}{
		"split_completed_at": now,
	}); err != nil {
		// The asset is already at post-split scale and the writes above
		// are idempotent; the missing stamp only costs a future resume a
		// re-check of the wallets.
		e.log.Warn().Err(err).Str("split_txn_id", splitTxn.ID).Msg("could not stamp split completion")
	}

	result.AssetUpdated = true
	return nil
}

// appliedSplitFactor is the product of the ratios of every completed split
// of the asset, plus the split identified by currentID, which is being
// finalized now.
func (e *Engine) appliedSplitFactor(ctx context.Context, assetID, currentID string) (float64, error) {
	txns, err := e.store.ListTransactions(ctx, assetID, &store.TxnFilter{Action: models.ActionStockSplit})
	if err != nil {
		return 0, err
	}
	factor := 1.0
	for _, t := range txns {
		if t.SplitRatio == nil {
			continue
		}
		if t.ID == currentID || t.SplitCompletedAt != nil {
			factor *= *t.SplitRatio
		}
	}
	return factor, nil
}
