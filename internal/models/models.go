package models

import (
	"time"
)

// WalletType partitions contributions to one asset into the two holding
// strategies. Every wallet belongs to exactly one type.
type WalletType string

const (
	WalletTypeSwing WalletType = "Swing"
	WalletTypeHold  WalletType = "Hold"
)

// TxnAction is the kind of event a transaction records.
type TxnAction string

const (
	ActionBuy        TxnAction = "Buy"
	ActionSell       TxnAction = "Sell"
	ActionDividend   TxnAction = "Div"
	ActionSLP        TxnAction = "SLP"
	ActionStockSplit TxnAction = "StockSplit"
)

// TxnAllocation says which wallet bucket(s) a Buy contributes to.
// AllocationSplit divides the buy between Swing and Hold by the asset's
// swing-hold ratio.
type TxnAllocation string

const (
	AllocationSwing TxnAllocation = "Swing"
	AllocationHold  TxnAllocation = "Hold"
	AllocationSplit TxnAllocation = "Split"
)

// Asset is one tracked position: a stock, ETF or crypto symbol with its
// trading parameters and derived cash-flow state.
type Asset struct {
	ID      string `bson:"_id,omitempty" json:"id"`
	OwnerID string `bson:"owner_id" json:"ownerId"`
	Symbol  string `bson:"symbol" json:"symbol"`
	Name    string `bson:"name,omitempty" json:"name,omitempty"`

	// Trading parameters.
	PriceDropPercent  float64  `bson:"price_drop_percent" json:"priceDropPercent"`
	ProfitLossRatio   float64  `bson:"profit_loss_ratio" json:"profitLossRatio"`
	SwingTakeProfit   float64  `bson:"swing_take_profit" json:"swingTakeProfit"`
	HoldTakeProfit    float64  `bson:"hold_take_profit" json:"holdTakeProfit"`
	SwingHoldRatio    float64  `bson:"swing_hold_ratio" json:"swingHoldRatio"` // percent allocated to Swing on a split buy
	CommissionPercent *float64 `bson:"commission_percent,omitempty" json:"commissionPercent,omitempty"`

	// Cumulative product of every split ratio applied to this asset.
	// Starts at 1 and only grows.
	SplitAdjustmentFactor float64 `bson:"split_adjustment_factor" json:"splitAdjustmentFactor"`

	// Manual price override used instead of the live quote, if set.
	// Rescaled on stock splits like any other price.
	TestPrice *float64 `bson:"test_price,omitempty" json:"testPrice,omitempty"`

	// Persisted cash-flow state, maintained by replaying the transaction
	// history. Both are clamped to be non-negative.
	TotalOutOfPocket   float64 `bson:"total_out_of_pocket" json:"totalOutOfPocket"`
	CurrentCashBalance float64 `bson:"current_cash_balance" json:"currentCashBalance"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Transaction records one event against an asset. Action decides which
// fields are meaningful: Buy/Sell carry price and quantity (Buy also a
// derived investment), Div/SLP carry amount, StockSplit carries the ratio
// and the reference prices around the split.
//
// Fields that do not apply to an action stay nil; a Div/SLP with a nil
// amount is a no-op during replay, not an error.
type Transaction struct {
	ID      string `bson:"_id,omitempty" json:"id"`
	AssetID string `bson:"asset_id" json:"assetId"`
	OwnerID string `bson:"owner_id" json:"ownerId"`

	Date   time.Time `bson:"date" json:"date"`
	Action TxnAction `bson:"action" json:"action"`

	Price      *float64 `bson:"price,omitempty" json:"price,omitempty"`
	Quantity   *float64 `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Investment *float64 `bson:"investment,omitempty" json:"investment,omitempty"`
	Amount     *float64 `bson:"amount,omitempty" json:"amount,omitempty"`

	SplitRatio     *float64 `bson:"split_ratio,omitempty" json:"splitRatio,omitempty"`
	PreSplitPrice  *float64 `bson:"pre_split_price,omitempty" json:"preSplitPrice,omitempty"`
	PostSplitPrice *float64 `bson:"post_split_price,omitempty" json:"postSplitPrice,omitempty"`

	// Buy only: which bucket(s) the investment goes to.
	Allocation TxnAllocation `bson:"allocation,omitempty" json:"allocation,omitempty"`

	// Sell only: the wallet this sell was matched against.
	WalletID   string   `bson:"wallet_id,omitempty" json:"walletId,omitempty"`
	RealizedPl *float64 `bson:"realized_pl,omitempty" json:"realizedPl,omitempty"`

	// StockSplit only: set once every wallet and the asset factor have
	// been rescaled. A recorded split without this stamp is incomplete
	// and can be resumed.
	SplitCompletedAt *time.Time `bson:"split_completed_at,omitempty" json:"splitCompletedAt,omitempty"`

	// CreatedAt breaks ties between same-day transactions during replay.
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Wallet is a cost-basis bucket: all shares of one asset bought at one
// price, under one wallet type. RemainingShares must never go negative.
type Wallet struct {
	ID      string `bson:"_id,omitempty" json:"id"`
	AssetID string `bson:"asset_id" json:"assetId"`
	OwnerID string `bson:"owner_id" json:"ownerId"`

	BuyPrice   float64    `bson:"buy_price" json:"buyPrice"`
	WalletType WalletType `bson:"wallet_type" json:"walletType"`

	TotalSharesQty  float64 `bson:"total_shares_qty" json:"totalSharesQty"`
	TotalInvestment float64 `bson:"total_investment" json:"totalInvestment"`
	SharesSold      float64 `bson:"shares_sold" json:"sharesSold"`
	RemainingShares float64 `bson:"remaining_shares" json:"remainingShares"`
	RealizedPl      float64 `bson:"realized_pl" json:"realizedPl"`
	SellTxnCount    int     `bson:"sell_txn_count" json:"sellTxnCount"`

	// Cached take-profit price for this bucket, recomputed whenever the
	// effective buy price changes.
	TpValue float64 `bson:"tp_value" json:"tpValue"`

	// ID of the StockSplit transaction this wallet was last rescaled for.
	// Lets a partially applied split resume without double-adjusting.
	LastSplitTxnID string `bson:"last_split_txn_id,omitempty" json:"lastSplitTxnId,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// SplitEvent is the minimal view of a StockSplit transaction used by the
// read-only split-adjusted helpers.
type SplitEvent struct {
	Date  time.Time `json:"date"`
	Ratio float64   `json:"ratio"`
}
