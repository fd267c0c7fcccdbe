package ledger

import (
	"context"
	"math"
	"time"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
)

// AdjustParams describes a signed contribution change against one wallet
// bucket. Asset supplies the take-profit and commission parameters; Wallet
// may carry a prefetched wallet to skip the triple lookup.
type AdjustParams struct {
	AssetID    string
	OwnerID    string
	BuyPrice   float64
	WalletType models.WalletType

	SharesDelta     float64
	InvestmentDelta float64

	Asset  *models.Asset
	Wallet *models.Wallet
}

func (p *AdjustParams) targetPercent() float64 {
	if p.WalletType == models.WalletTypeSwing {
		return p.Asset.SwingTakeProfit
	}
	return p.Asset.HoldTakeProfit
}

// AdjustWalletContribution applies a signed shares/investment change to the
// (asset, buyPrice, walletType) bucket: it finds, creates, updates or
// deletes the matching wallet and recomputes its cached target price.
//
// Each call touches exactly one bucket. Callers splitting a single buy
// across Swing and Hold must treat each bucket update as independently
// failable.
func (e *Engine) AdjustWalletContribution(ctx context.Context, p AdjustParams) error {
	if math.Abs(p.SharesDelta) < ShareEpsilon && math.Abs(p.InvestmentDelta) < CurrencyEpsilon {
		return nil
	}
	if math.IsNaN(p.BuyPrice) || math.IsInf(p.BuyPrice, 0) || p.BuyPrice < 0 {
		return &InvalidInputError{Reason: "buy price must be finite and non-negative"}
	}

	wallet := p.Wallet
	if wallet == nil {
		var err error
		wallet, err = e.store.FindWallet(ctx, p.AssetID, p.BuyPrice, p.WalletType)
		if err != nil {
			return persistErr("wallet lookup", err)
		}
	}

	if wallet != nil {
		return e.updateExistingWallet(ctx, p, wallet)
	}

	if p.SharesDelta > ShareEpsilon {
		return e.createWallet(ctx, p)
	}

	// Nothing to subtract from.
	e.log.Debug().
		Str("asset_id", p.AssetID).
		Float64("buy_price", p.BuyPrice).
		Str("wallet_type", string(p.WalletType)).
		Msg("negative adjustment against missing wallet ignored")
	return nil
}

func (e *Engine) updateExistingWallet(ctx context.Context, p AdjustParams, w *models.Wallet) error {
	newTotalShares := w.TotalSharesQty + p.SharesDelta
	newRemaining := w.RemainingShares + p.SharesDelta

	// A bucket that was sold down to zero keeps its historical totals on
	// the record, but its investment must not be carried into a fresh buy
	// cycle: the cost basis would be double counted.
	priorInvestment := w.TotalInvestment
	if w.RemainingShares <= ShareEpsilon {
		priorInvestment = 0
	}
	newInvestment := priorInvestment + p.InvestmentDelta

	if newRemaining < -ShareEpsilon {
		if p.SharesDelta < 0 && (w.SharesSold > ShareEpsilon || w.SellTxnCount > 0) {
			return &NegativeRemainingSharesError{WalletID: w.ID, Remaining: newRemaining}
		}
		e.log.Warn().
			Str("wallet_id", w.ID).
			Float64("remaining", newRemaining).
			Msg("wallet adjustment produced negative remaining shares with no recorded sales")
	}

	if newTotalShares <= ShareEpsilon && newInvestment <= CurrencyEpsilon && newRemaining <= ShareEpsilon {
		// Fully unwound and never sold into, or unwound by edits: drop the
		// row instead of keeping an empty bucket around.
		if err := e.store.DeleteWallet(ctx, w.ID); err != nil {
			return persistErr("wallet delete", err)
		}
		e.log.Info().Str("wallet_id", w.ID).Msg("deleted empty wallet")
		return nil
	}

	if newTotalShares < -ShareEpsilon {
		return &NegativeSharesError{WalletID: w.ID, Total: newTotalShares}
	}

	effectiveBuyPrice := w.BuyPrice
	if newTotalShares > ShareEpsilon {
		effectiveBuyPrice = newInvestment / newTotalShares
	}
	tp := CalculateTargetPrice(effectiveBuyPrice, p.targetPercent(), p.Asset.CommissionPercent)

	err := e.store.UpdateWallet(ctx, w.ID, map[string]interface{}{
		"total_shares_qty": RoundShares(newTotalShares),
		"total_investment": RoundCurrency(newInvestment),
		"remaining_shares": RoundShares(newRemaining),
		"tp_value":         tp,
	})
	return persistErr("wallet update", err)
}

func (e *Engine) createWallet(ctx context.Context, p AdjustParams) error {
	wallet := &models.Wallet{
		AssetID:         p.AssetID,
		OwnerID:         p.OwnerID,
		BuyPrice:        RoundPrice(p.BuyPrice),
		WalletType:      p.WalletType,
		TotalSharesQty:  RoundShares(p.SharesDelta),
		TotalInvestment: RoundCurrency(p.InvestmentDelta),
		SharesSold:      0,
		RemainingShares: RoundShares(p.SharesDelta),
		SellTxnCount:    0,
		TpValue:         CalculateTargetPrice(p.BuyPrice, p.targetPercent(), p.Asset.CommissionPercent),
		CreatedAt:       time.Now(),
	}
	if err := e.store.CreateWallet(ctx, wallet); err != nil {
		return persistErr("wallet create", err)
	}
	e.log.Info().
		Str("wallet_id", wallet.ID).
		Str("asset_id", p.AssetID).
		Float64("buy_price", wallet.BuyPrice).
		Str("wallet_type", string(p.WalletType)).
		Msg("created wallet")
	return nil
}
