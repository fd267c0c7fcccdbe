package store

import (
	"context"
	"errors"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// TxnFilter narrows a transaction listing. Zero values mean "no filter".
type TxnFilter struct {
	Action models.TxnAction
}

// PositionStore is the persistence collaborator of the ledger engine. All
// implementations are document stores keyed by string IDs; the engine never
// interprets store-specific errors beyond succeeded/failed and ErrNotFound.
type PositionStore interface {
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	CreateAsset(ctx context.Context, asset *models.Asset) error
	UpdateAsset(ctx context.Context, id string, fields map[string]interface{}) error
	ListAssets(ctx context.Context, ownerID string) ([]models.Asset, error)

	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, assetID string, filter *TxnFilter) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	UpdateTransaction(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteTransaction(ctx context.Context, id string) error

	// FindWallet looks up a wallet by its identifying triple. It returns
	// (nil, nil) when no wallet matches; errors mean the lookup itself
	// failed.
	FindWallet(ctx context.Context, assetID string, buyPrice float64, walletType models.WalletType) (*models.Wallet, error)
	GetWallet(ctx context.Context, id string) (*models.Wallet, error)
	ListWallets(ctx context.Context, assetID string) ([]models.Wallet, error)
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	UpdateWallet(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteWallet(ctx context.Context, id string) error
}
