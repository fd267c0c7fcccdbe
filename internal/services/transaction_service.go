package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/ledger"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

// TransactionService orchestrates transaction mutations: it persists the
// transaction, fans the effects out to the wallet buckets, refreshes the
// asset's cash-flow totals and notifies connected clients.
type TransactionService struct {
	store  store.PositionStore
	engine *ledger.Engine
	hub    *PositionHub
	log    zerolog.Logger
}

func NewTransactionService(st store.PositionStore, engine *ledger.Engine, hub *PositionHub, log zerolog.Logger) *TransactionService {
	return &TransactionService{store: st, engine: engine, hub: hub, log: log}
}

// bucket is one wallet-type share of a buy.
type bucket struct {
	walletType models.WalletType
	shares     float64
	investment float64
}

// allocationBuckets splits a buy across wallet types. AllocationSplit
// divides by the asset's swing-hold ratio; the hold bucket takes the
// rounding remainder so shares and dollars are conserved exactly.
func allocationBuckets(asset *models.Asset, quantity, investment float64) []bucket {
	ratio := asset.SwingHoldRatio / 100
	swingShares := ledger.RoundShares(quantity * ratio)
	swingInv := ledger.RoundCurrency(investment * ratio)
	return []bucket{
		{models.WalletTypeSwing, swingShares, swingInv},
		{models.WalletTypeHold, ledger.RoundShares(quantity - swingShares), ledger.RoundCurrency(investment - swingInv)},
	}
}

func buyBuckets(asset *models.Asset, txn *models.Transaction) []bucket {
	quantity := *txn.Quantity
	investment := *txn.Investment
	switch txn.Allocation {
	case models.AllocationSwing:
		return []bucket{{models.WalletTypeSwing, quantity, investment}}
	case models.AllocationHold:
		return []bucket{{models.WalletTypeHold, quantity, investment}}
	default:
		return allocationBuckets(asset, quantity, investment)
	}
}

func validateTransaction(txn *models.Transaction) error {
	switch txn.Action {
	case models.ActionBuy, models.ActionSell:
		if txn.Price == nil || *txn.Price <= 0 {
			return fmt.Errorf("%s requires a positive price", txn.Action)
		}
		if txn.Quantity == nil || *txn.Quantity <= 0 {
			return fmt.Errorf("%s requires a positive quantity", txn.Action)
		}
	case models.ActionDividend, models.ActionSLP:
		// A nil amount is allowed; it replays as a no-op.
	case models.ActionStockSplit:
		return errors.New("stock splits go through the split endpoint, not transaction creation")
	default:
		return fmt.Errorf("unknown action %q", txn.Action)
	}
	return nil
}

// CreateTransaction validates and persists a transaction, then applies its
// ledger effects and recomputes the asset's cash-flow totals.
func (s *TransactionService) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}
	asset, err := s.store.GetAsset(ctx, txn.AssetID)
	if err != nil {
		return fmt.Errorf("asset lookup: %w", err)
	}
	txn.OwnerID = asset.OwnerID

	if txn.Action == models.ActionBuy {
		inv := ledger.RoundCurrency(*txn.Price * *txn.Quantity)
		txn.Investment = &inv
		if txn.Allocation == "" {
			txn.Allocation = models.AllocationSplit
		}
	}

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return fmt.Errorf("transaction create: %w", err)
	}

	if err := s.applyEffects(ctx, asset, txn, 1); err != nil {
		// A rejected sell wrote nothing; remove its row so it does not
		// linger in the history and skew the next replay. Partially applied
		// buys keep theirs: one bucket may have landed.
		if txn.Action == models.ActionSell {
			if delErr := s.store.DeleteTransaction(ctx, txn.ID); delErr != nil {
				s.log.Error().Err(delErr).Str("txn_id", txn.ID).Msg("could not roll back rejected sell")
			}
		}
		return err
	}
	return s.finish(ctx, asset)
}

// DeleteTransaction reverses a transaction's wallet effects and removes
// it. Stock split records are permanent and cannot be deleted.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("transaction lookup: %w", err)
	}
	if txn.Action == models.ActionStockSplit {
		return errors.New("stock split records are permanent")
	}
	asset, err := s.store.GetAsset(ctx, txn.AssetID)
	if err != nil {
		return fmt.Errorf("asset lookup: %w", err)
	}

	if err := s.applyEffects(ctx, asset, txn, -1); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("transaction delete: %w", err)
	}
	return s.finish(ctx, asset)
}

// UpdateTransaction replaces a transaction's economics and rewrites the
// stored row. A Buy edit moves each wallet bucket by the net difference
// between the old and new buy, so shrinking a buy on a partially sold
// wallet is judged on the final remaining shares; only an edit whose end
// state is negative is rejected. Sell edits reverse the old booking and
// apply the new one.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, updated *models.Transaction) error {
	if err := validateTransaction(updated); err != nil {
		return err
	}
	old, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("transaction lookup: %w", err)
	}
	if old.Action == models.ActionStockSplit {
		return errors.New("stock split records are permanent")
	}
	if updated.Action != old.Action {
		return errors.New("a transaction's action cannot change; delete and recreate instead")
	}
	asset, err := s.store.GetAsset(ctx, old.AssetID)
	if err != nil {
		return fmt.Errorf("asset lookup: %w", err)
	}

	updated.ID = old.ID
	updated.AssetID = old.AssetID
	updated.OwnerID = old.OwnerID
	updated.CreatedAt = old.CreatedAt
	if updated.Action == models.ActionBuy {
		inv := ledger.RoundCurrency(*updated.Price * *updated.Quantity)
		updated.Investment = &inv
		if updated.Allocation == "" {
			updated.Allocation = old.Allocation
		}
	}

	switch updated.Action {
	case models.ActionBuy:
		if err := s.applyBuyEdit(ctx, asset, old, updated); err != nil {
			return err
		}
	default:
		if err := s.applyEffects(ctx, asset, old, -1); err != nil {
			return err
		}
		if err := s.applyEffects(ctx, asset, updated, 1); err != nil {
			return err
		}
	}

	fields := map[string]interface{}{
		"date":       updated.Date,
		"price":      updated.Price,
		"quantity":   updated.Quantity,
		"investment": updated.Investment,
		"amount":     updated.Amount,
	}
	if updated.Action == models.ActionBuy {
		fields["allocation"] = updated.Allocation
	}
	if err := s.store.UpdateTransaction(ctx, id, fields); err != nil {
		return fmt.Errorf("transaction update: %w", err)
	}
	return s.finish(ctx, asset)
}

// applyBuyEdit adjusts wallets by the net delta between a buy's old and
// new buckets. A full reversal followed by re-application would pass
// through zero and trip the oversell guard on any wallet with recorded
// sales, even when the edited buy still covers everything sold.
func (s *TransactionService) applyBuyEdit(ctx context.Context, asset *models.Asset, old, updated *models.Transaction) error {
	type bucketKey struct {
		price      float64
		walletType models.WalletType
	}
	deltas := make(map[bucketKey]bucket)

	oldPrice := ledger.RoundPrice(*old.Price)
	for _, b := range buyBuckets(asset, old) {
		k := bucketKey{oldPrice, b.walletType}
		d := deltas[k]
		d.walletType = b.walletType
		d.shares -= b.shares
		d.investment -= b.investment
		deltas[k] = d
	}
	newPrice := ledger.RoundPrice(*updated.Price)
	for _, b := range buyBuckets(asset, updated) {
		k := bucketKey{newPrice, b.walletType}
		d := deltas[k]
		d.walletType = b.walletType
		d.shares += b.shares
		d.investment += b.investment
		deltas[k] = d
	}

	var failed []string
	var firstErr error
	for k, d := range deltas {
		err := s.engine.AdjustWalletContribution(ctx, ledger.AdjustParams{
			AssetID:         asset.ID,
			OwnerID:         asset.OwnerID,
			BuyPrice:        k.price,
			WalletType:      k.walletType,
			SharesDelta:     d.shares,
			InvestmentDelta: d.investment,
			Asset:           asset,
		})
		if err != nil {
			failed = append(failed, string(k.walletType))
			if firstErr == nil {
				firstErr = err
			}
			s.log.Error().Err(err).
				Str("txn_id", old.ID).
				Str("wallet_type", string(k.walletType)).
				Msg("wallet bucket update failed")
		}
	}
	if firstErr != nil {
		return fmt.Errorf("buckets %s failed: %w", strings.Join(failed, ","), firstErr)
	}
	return nil
}

// GetTransaction fetches one transaction by ID.
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// GetTransactions lists an asset's history in replay order.
func (s *TransactionService) GetTransactions(ctx context.Context, assetID string) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, assetID, nil)
}

// applyEffects applies (direction=1) or reverses (direction=-1) a
// transaction's wallet-level effects. Dividends and SLP payments touch no
// wallet; they only matter to the cash-flow replay.
func (s *TransactionService) applyEffects(ctx context.Context, asset *models.Asset, txn *models.Transaction, direction float64) error {
	switch txn.Action {
	case models.ActionBuy:
		return s.applyBuy(ctx, asset, txn, direction)
	case models.ActionSell:
		return s.applySell(ctx, asset, txn, direction)
	default:
		return nil
	}
}

// applyBuy adjusts each wallet bucket the buy contributes to. Bucket
// updates are independently failable: a failure on the second bucket does
// not roll back the first, so the error names which buckets completed.
func (s *TransactionService) applyBuy(ctx context.Context, asset *models.Asset, txn *models.Transaction, direction float64) error {
	var failed []string
	var firstErr error
	for _, b := range buyBuckets(asset, txn) {
		if b.shares == 0 && b.investment == 0 {
			continue
		}
		err := s.engine.AdjustWalletContribution(ctx, ledger.AdjustParams{
			AssetID:         asset.ID,
			OwnerID:         asset.OwnerID,
			BuyPrice:        ledger.RoundPrice(*txn.Price),
			WalletType:      b.walletType,
			SharesDelta:     direction * b.shares,
			InvestmentDelta: direction * b.investment,
			Asset:           asset,
		})
		if err != nil {
			failed = append(failed, string(b.walletType))
			if firstErr == nil {
				firstErr = err
			}
			s.log.Error().Err(err).
				Str("txn_id", txn.ID).
				Str("wallet_type", string(b.walletType)).
				Msg("wallet bucket update failed")
		}
	}
	if firstErr != nil {
		return fmt.Errorf("buckets %s failed: %w", strings.Join(failed, ","), firstErr)
	}
	return nil
}

// applySell books a sell against its wallet: shares sold, sell count and
// realized P/L move forward or back depending on direction. The sell is
// viewed at today's post-split scale before matching, so a backdated sell
// entered after a split still lines up with its rescaled wallet.
func (s *TransactionService) applySell(ctx context.Context, asset *models.Asset, txn *models.Transaction, direction float64) error {
	wallet, err := s.resolveSellWallet(ctx, asset, txn)
	if err != nil {
		return err
	}
	if wallet == nil {
		if direction < 0 {
			// Reversing a sell whose wallet is gone: cash flow replay will
			// still be correct, only per-wallet P/L history is lost.
			s.log.Warn().Str("txn_id", txn.ID).Msg("sell reversal against missing wallet skipped")
			return nil
		}
		return fmt.Errorf("no wallet holds shares of %s at a matching buy price", asset.Symbol)
	}

	adjusted := txn
	if splits, err := s.assetSplits(ctx, asset.ID); err == nil && len(splits) > 0 {
		adj := ledger.SplitAdjusted(*txn, splits)
		adjusted = &adj
	}
	quantity := *adjusted.Quantity
	sellPrice := *adjusted.Price

	if direction > 0 && wallet.RemainingShares+ledger.ShareEpsilon < quantity {
		return fmt.Errorf("insufficient shares: wallet holds %.5f, sell wants %.5f", wallet.RemainingShares, quantity)
	}

	pl := ledger.RoundCurrency((sellPrice - wallet.BuyPrice) * quantity)
	if direction < 0 && txn.RealizedPl != nil {
		// Reverse exactly what was booked, not a recomputation against a
		// wallet whose basis may have been rescaled since.
		pl = *txn.RealizedPl
	}

	newSold := ledger.RoundShares(wallet.SharesSold + direction*quantity)
	newRemaining := ledger.RoundShares(wallet.RemainingShares - direction*quantity)
	if newRemaining < -ledger.ShareEpsilon {
		return &ledger.NegativeRemainingSharesError{WalletID: wallet.ID, Remaining: newRemaining}
	}
	if newSold < 0 {
		newSold = 0
	}
	count := wallet.SellTxnCount + int(direction)
	if count < 0 {
		count = 0
	}

	err = s.store.UpdateWallet(ctx, wallet.ID, map[string]interface{}{
		"shares_sold":      newSold,
		"remaining_shares": newRemaining,
		"realized_pl":      ledger.RoundCurrency(wallet.RealizedPl + direction*pl),
		"sell_txn_count":   count,
	})
	if err != nil {
		return fmt.Errorf("wallet sell update: %w", err)
	}

	if direction > 0 && txn.ID != "" {
		err = s.store.UpdateTransaction(ctx, txn.ID, map[string]interface{}{
			"wallet_id":   wallet.ID,
			"realized_pl": pl,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("txn_id", txn.ID).Msg("could not stamp realized P/L on sell")
		}
	}
	return nil
}

// resolveSellWallet finds the wallet a sell belongs to: the one it was
// stamped with, or the bucket matching its price and wallet type.
func (s *TransactionService) resolveSellWallet(ctx context.Context, asset *models.Asset, txn *models.Transaction) (*models.Wallet, error) {
	if txn.WalletID != "" {
		w, err := s.store.GetWallet(ctx, txn.WalletID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("wallet lookup: %w", err)
		}
		return w, nil
	}

	walletType := models.WalletTypeSwing
	if txn.Allocation == models.AllocationHold {
		walletType = models.WalletTypeHold
	}
	w, err := s.store.FindWallet(ctx, asset.ID, ledger.RoundPrice(*txn.Price), walletType)
	if err != nil {
		return nil, fmt.Errorf("wallet lookup: %w", err)
	}
	if w != nil {
		return w, nil
	}

	// No bucket at the sell price; fall back to the wallet with the most
	// remaining shares of the requested type.
	wallets, err := s.store.ListWallets(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("wallet list: %w", err)
	}
	var best *models.Wallet
	for i := range wallets {
		cand := &wallets[i]
		if cand.WalletType != walletType || cand.RemainingShares < ledger.ShareEpsilon {
			continue
		}
		if best == nil || cand.RemainingShares > best.RemainingShares {
			best = cand
		}
	}
	return best, nil
}

func (s *TransactionService) assetSplits(ctx context.Context, assetID string) ([]models.SplitEvent, error) {
	txns, err := s.store.ListTransactions(ctx, assetID, &store.TxnFilter{Action: models.ActionStockSplit})
	if err != nil {
		return nil, err
	}
	return ledger.SplitEventsFromTransactions(txns), nil
}

// finish recomputes cash-flow totals and pushes a position update.
func (s *TransactionService) finish(ctx context.Context, asset *models.Asset) error {
	totals, err := s.engine.RecomputeCashFlow(ctx, asset.ID)
	if err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.BroadcastPosition(PositionUpdate{
			AssetID:            asset.ID,
			Symbol:             asset.Symbol,
			TotalOutOfPocket:   totals.TotalOutOfPocket,
			CurrentCashBalance: totals.CurrentCashBalance,
			Roic:               ledger.ROIC(totals.CurrentCashBalance, totals.TotalOutOfPocket),
		})
	}
	return nil
}
