package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/reconcile"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
)

// TransactionRepository implements the repositories.TransactionRepository interface
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *mongo.Database) repositories.TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection("transactions"),
	}
}

// Create creates a new transaction row in status pending
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, txn)
	return err
}

// FindByCorrelationID finds a transaction by its provider-issued correlation id
func (r *TransactionRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"correlation_id": correlationID}).Decode(&txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindRecent finds transactions sorted by creation time with pagination
func (r *TransactionRepository) FindRecent(ctx context.Context, page, limit int) ([]*models.Transaction, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txns []*models.Transaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, err
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}
	return txns, nil
}

// CompleteIfPending moves a transaction to a terminal status. The filter
// requires status pending, so re-applying a callback to an already terminal
// row matches nothing and reports false — this is the at-most-once guard
// relied on by concurrent webhook deliveries.
func (r *TransactionRepository) CompleteIfPending(ctx context.Context, correlationID string, update repositories.TransactionUpdate) (bool, error) {
	set := bson.M{
		"status":      update.Status,
		"result_code": update.ResultCode,
		"result_desc": update.ResultDesc,
		"updated_at":  time.Now(),
	}
	if update.ReceiptNumber != "" {
		set["mpesa_receipt_number"] = update.ReceiptNumber
	}
	if update.TransactionDate != nil {
		set["transaction_date"] = update.TransactionDate
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"correlation_id": correlationID, "status": models.TransactionPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// SweepPending marks transactions stuck in pending since before olderThan as
// timed out and returns how many rows were swept. The pending-only filter
// means a callback racing the sweep still wins.
func (r *TransactionRepository) SweepPending(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":     models.TransactionPending,
			"created_at": bson.M{"$lt": olderThan},
		},
		bson.M{"$set": bson.M{
			"status":      models.TransactionTimeout,
			"result_desc": "no provider callback within the pending window",
			"updated_at":  time.Now(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// Watch opens a change-stream feed for a single correlation id
func (r *TransactionRepository) Watch(ctx context.Context, correlationID string) (reconcile.Feed, error) {
	return newTransactionFeed(ctx, r.collection, correlationID)
}

// Count counts all transactions
func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
