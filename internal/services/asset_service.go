package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/ledger"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

// AssetService owns asset lifecycle and the read-side position summary.
type AssetService struct {
	store  store.PositionStore
	engine *ledger.Engine
	log    zerolog.Logger
}

func NewAssetService(st store.PositionStore, engine *ledger.Engine, log zerolog.Logger) *AssetService {
	return &AssetService{store: st, engine: engine, log: log}
}

// CreateAsset registers a new tracked position. The split factor starts at
// one and cash-flow state at zero.
func (s *AssetService) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.Symbol == "" {
		return errors.New("symbol is required")
	}
	existing, err := s.store.ListAssets(ctx, asset.OwnerID)
	if err != nil {
		return fmt.Errorf("asset list: %w", err)
	}
	for _, a := range existing {
		if a.Symbol == asset.Symbol {
			return fmt.Errorf("asset %s already exists", asset.Symbol)
		}
	}

	asset.SplitAdjustmentFactor = 1
	asset.TotalOutOfPocket = 0
	asset.CurrentCashBalance = 0
	if asset.SwingHoldRatio == 0 {
		asset.SwingHoldRatio = 50
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return fmt.Errorf("asset create: %w", err)
	}
	s.log.Info().Str("asset_id", asset.ID).Str("symbol", asset.Symbol).Msg("asset created")
	return nil
}

func (s *AssetService) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	return s.store.GetAsset(ctx, id)
}

func (s *AssetService) ListAssets(ctx context.Context, ownerID string) ([]models.Asset, error) {
	return s.store.ListAssets(ctx, ownerID)
}

// UpdateParams is the set of asset fields a caller may change directly.
// Split factor and cash-flow state are derived and only move through the
// ledger operations.
type UpdateParams struct {
	Name              *string  `json:"name"`
	PriceDropPercent  *float64 `json:"priceDropPercent"`
	ProfitLossRatio   *float64 `json:"profitLossRatio"`
	SwingTakeProfit   *float64 `json:"swingTakeProfit"`
	HoldTakeProfit    *float64 `json:"holdTakeProfit"`
	SwingHoldRatio    *float64 `json:"swingHoldRatio"`
	CommissionPercent *float64 `json:"commissionPercent"`
	TestPrice         *float64 `json:"testPrice"`
}

func (s *AssetService) UpdateAsset(ctx context.Context, id string, p UpdateParams) error {
	fields := map[string]interface{}{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.PriceDropPercent != nil {
		fields["price_drop_percent"] = *p.PriceDropPercent
	}
	if p.ProfitLossRatio != nil {
		fields["profit_loss_ratio"] = *p.ProfitLossRatio
	}
	if p.SwingTakeProfit != nil {
		fields["swing_take_profit"] = *p.SwingTakeProfit
	}
	if p.HoldTakeProfit != nil {
		fields["hold_take_profit"] = *p.HoldTakeProfit
	}
	if p.SwingHoldRatio != nil {
		if *p.SwingHoldRatio < 0 || *p.SwingHoldRatio > 100 {
			return errors.New("swing-hold ratio must be between 0 and 100")
		}
		fields["swing_hold_ratio"] = *p.SwingHoldRatio
	}
	if p.CommissionPercent != nil {
		fields["commission_percent"] = p.CommissionPercent
	}
	if p.TestPrice != nil {
		fields["test_price"] = p.TestPrice
	}
	if len(fields) == 0 {
		return nil
	}
	return s.store.UpdateAsset(ctx, id, fields)
}

// AssetSummary is the read model for one position: wallets plus derived
// cash-flow metrics.
type AssetSummary struct {
	Asset           models.Asset    `json:"asset"`
	Wallets         []models.Wallet `json:"wallets"`
	RemainingShares float64         `json:"remainingShares"`
	TotalInvestment float64         `json:"totalInvestment"`
	RealizedPl      float64         `json:"realizedPl"`
	Roic            float64         `json:"roic"`
}

func (s *AssetService) GetSummary(ctx context.Context, id string) (*AssetSummary, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	wallets, err := s.store.ListWallets(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wallet list: %w", err)
	}

	summary := &AssetSummary{Asset: *asset, Wallets: wallets}
	for _, w := range wallets {
		summary.RemainingShares += w.RemainingShares
		summary.TotalInvestment += w.TotalInvestment
		summary.RealizedPl += w.RealizedPl
	}
	summary.RemainingShares = ledger.RoundShares(summary.RemainingShares)
	summary.TotalInvestment = ledger.RoundCurrency(summary.TotalInvestment)
	summary.RealizedPl = ledger.RoundCurrency(summary.RealizedPl)
	summary.Roic = ledger.ROIC(asset.CurrentCashBalance, asset.TotalOutOfPocket)
	return summary, nil
}

// MigrateAllCashFlows replays every asset's history from scratch. Run
// nightly and available as an admin action; errors on one asset do not
// stop the others.
func (s *AssetService) MigrateAllCashFlows(ctx context.Context) error {
	assets, err := s.store.ListAssets(ctx, "")
	if err != nil {
		return fmt.Errorf("asset list: %w", err)
	}
	var failures int
	for _, a := range assets {
		if _, err := s.engine.MigrateStockCashFlow(ctx, a.ID); err != nil {
			failures++
			s.log.Error().Err(err).Str("asset_id", a.ID).Str("symbol", a.Symbol).Msg("cash flow migration failed")
		}
	}
	if failures > 0 {
		return fmt.Errorf("cash flow migration failed for %d of %d assets", failures, len(assets))
	}
	s.log.Info().Int("assets", len(assets)).Msg("cash flow migration pass complete")
	return nil
}
