package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
)

// MemoryStore is an in-memory PositionStore used by unit tests and local
// development. It mirrors the mongo implementation's semantics, including
// the bson field names accepted by the partial-update calls.
type MemoryStore struct {
	mu           sync.RWMutex
	assets       map[string]*models.Asset
	transactions map[string]*models.Transaction
	wallets      map[string]*models.Wallet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:       make(map[string]*models.Asset),
		transactions: make(map[string]*models.Transaction),
		wallets:      make(map[string]*models.Wallet),
	}
}

func (s *MemoryStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *asset
	return &cp, nil
}

func (s *MemoryStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now()
	asset.CreatedAt = now
	asset.UpdatedAt = now
	cp := *asset
	s.assets[asset.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateAsset(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if err := applyAssetField(asset, k, v); err != nil {
			return err
		}
	}
	asset.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ListAssets(ctx context.Context, ownerID string) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Asset
	for _, a := range s.assets {
		if ownerID != "" && a.OwnerID != ownerID {
			continue
		}
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Symbol < list[j].Symbol })
	return list, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, assetID string, filter *TxnFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Transaction
	for _, t := range s.transactions {
		if t.AssetID != assetID {
			continue
		}
		if filter != nil && filter.Action != "" && t.Action != filter.Action {
			continue
		}
		list = append(list, *t)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	cp := *txn
	s.transactions[txn.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateTransaction(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.transactions[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if err := applyTransactionField(txn, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *MemoryStore) FindWallet(ctx context.Context, assetID string, buyPrice float64, walletType models.WalletType) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.wallets {
		if w.AssetID == assetID && w.BuyPrice == buyPrice && w.WalletType == walletType {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) ListWallets(ctx context.Context, assetID string) ([]models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Wallet
	for _, w := range s.wallets {
		if w.AssetID == assetID {
			list = append(list, *w)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].BuyPrice != list[j].BuyPrice {
			return list[i].BuyPrice < list[j].BuyPrice
		}
		return list[i].WalletType < list[j].WalletType
	})
	return list, nil
}

func (s *MemoryStore) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wallet.ID == "" {
		wallet.ID = uuid.NewString()
	}
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	cp := *wallet
	s.wallets[wallet.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateWallet(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if err := applyWalletField(w, k, v); err != nil {
			return err
		}
	}
	w.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteWallet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[id]; !ok {
		return ErrNotFound
	}
	delete(s.wallets, id)
	return nil
}

func applyAssetField(a *models.Asset, key string, value interface{}) error {
	switch key {
	case "symbol":
		a.Symbol = value.(string)
	case "name":
		a.Name = value.(string)
	case "price_drop_percent":
		a.PriceDropPercent = toFloat(value)
	case "profit_loss_ratio":
		a.ProfitLossRatio = toFloat(value)
	case "swing_take_profit":
		a.SwingTakeProfit = toFloat(value)
	case "hold_take_profit":
		a.HoldTakeProfit = toFloat(value)
	case "swing_hold_ratio":
		a.SwingHoldRatio = toFloat(value)
	case "commission_percent":
		a.CommissionPercent = toFloatPtr(value)
	case "split_adjustment_factor":
		a.SplitAdjustmentFactor = toFloat(value)
	case "test_price":
		a.TestPrice = toFloatPtr(value)
	case "total_out_of_pocket":
		a.TotalOutOfPocket = toFloat(value)
	case "current_cash_balance":
		a.CurrentCashBalance = toFloat(value)
	default:
		return fmt.Errorf("memory store: unknown asset field %q", key)
	}
	return nil
}

func applyTransactionField(t *models.Transaction, key string, value interface{}) error {
	switch key {
	case "date":
		t.Date = value.(time.Time)
	case "price":
		t.Price = toFloatPtr(value)
	case "quantity":
		t.Quantity = toFloatPtr(value)
	case "investment":
		t.Investment = toFloatPtr(value)
	case "amount":
		t.Amount = toFloatPtr(value)
	case "allocation":
		t.Allocation = value.(models.TxnAllocation)
	case "wallet_id":
		t.WalletID = value.(string)
	case "realized_pl":
		t.RealizedPl = toFloatPtr(value)
	case "split_completed_at":
		if value == nil {
			t.SplitCompletedAt = nil
		} else {
			ts := value.(time.Time)
			t.SplitCompletedAt = &ts
		}
	default:
		return fmt.Errorf("memory store: unknown transaction field %q", key)
	}
	return nil
}

func applyWalletField(w *models.Wallet, key string, value interface{}) error {
	switch key {
	case "buy_price":
		w.BuyPrice = toFloat(value)
	case "total_shares_qty":
		w.TotalSharesQty = toFloat(value)
	case "total_investment":
		w.TotalInvestment = toFloat(value)
	case "shares_sold":
		w.SharesSold = toFloat(value)
	case "remaining_shares":
		w.RemainingShares = toFloat(value)
	case "realized_pl":
		w.RealizedPl = toFloat(value)
	case "sell_txn_count":
		w.SellTxnCount = value.(int)
	case "tp_value":
		w.TpValue = toFloat(value)
	case "last_split_txn_id":
		w.LastSplitTxnID = value.(string)
	default:
		return fmt.Errorf("memory store: unknown wallet field %q", key)
	}
	return nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		panic(fmt.Sprintf("memory store: not a number: %T", v))
	}
}

func toFloatPtr(v interface{}) *float64 {
	if v == nil {
		return nil
	}
	if p, ok := v.(*float64); ok {
		return p
	}
	f := toFloat(v)
	return &f
}
