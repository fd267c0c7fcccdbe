package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
)

// MongoStore implements PositionStore on top of a MongoDB database.
// Documents use string _id values (object ID hex) so the engine stays
// agnostic of the driver's primitive types.
type MongoStore struct {
	assets       *mongo.Collection
	transactions *mongo.Collection
	wallets      *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		assets:       db.Collection("assets"),
		transactions: db.Collection("transactions"),
		wallets:      db.Collection("wallets"),
	}
}

func (s *MongoStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	var asset models.Asset
	err := s.assets.FindOne(ctx, bson.M{"_id": id}).Decode(&asset)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *MongoStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		asset.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	asset.CreatedAt = now
	asset.UpdatedAt = now
	_, err := s.assets.InsertOne(ctx, asset)
	return err
}

func (s *MongoStore) UpdateAsset(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.assets.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListAssets(ctx context.Context, ownerID string) ([]models.Asset, error) {
	filter := bson.M{}
	if ownerID != "" {
		filter["owner_id"] = ownerID
	}
	cur, err := s.assets.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var list []models.Asset
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *MongoStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.transactions.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *MongoStore) ListTransactions(ctx context.Context, assetID string, filter *TxnFilter) ([]models.Transaction, error) {
	query := bson.M{"asset_id": assetID}
	if filter != nil && filter.Action != "" {
		query["action"] = filter.Action
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := s.transactions.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var list []models.Transaction
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *MongoStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = primitive.NewObjectID().Hex()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	_, err := s.transactions.InsertOne(ctx, txn)
	return err
}

func (s *MongoStore) UpdateTransaction(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.transactions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.transactions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindWallet(ctx context.Context, assetID string, buyPrice float64, walletType models.WalletType) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.wallets.FindOne(ctx, bson.M{
		"asset_id":    assetID,
		"buy_price":   buyPrice,
		"wallet_type": walletType,
	}).Decode(&wallet)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *MongoStore) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.wallets.FindOne(ctx, bson.M{"_id": id}).Decode(&wallet)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *MongoStore) ListWallets(ctx context.Context, assetID string) ([]models.Wallet, error) {
	cur, err := s.wallets.Find(ctx, bson.M{"asset_id": assetID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var list []models.Wallet
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *MongoStore) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	if wallet.ID == "" {
		wallet.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	_, err := s.wallets.InsertOne(ctx, wallet)
	return err
}

func (s *MongoStore) UpdateWallet(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.wallets.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteWallet(ctx context.Context, id string) error {
	res, err := s.wallets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
