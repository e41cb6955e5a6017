package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
)

// WelfareCaseRepository implements the repositories.WelfareCaseRepository interface
type WelfareCaseRepository struct {
	collection *mongo.Collection
}

// NewWelfareCaseRepository creates a new WelfareCaseRepository
func NewWelfareCaseRepository(db *mongo.Database) repositories.WelfareCaseRepository {
	return &WelfareCaseRepository{
		collection: db.Collection("welfare_cases"),
	}
}

// Create creates a new welfare case
func (r *WelfareCaseRepository) Create(ctx context.Context, welfareCase *models.WelfareCase) error {
	welfareCase.CreatedAt = time.Now()
	welfareCase.UpdatedAt = time.Now()
	if welfareCase.Status == "" {
		welfareCase.Status = models.WelfareCaseOpen
	}
	_, err := r.collection.InsertOne(ctx, welfareCase)
	return err
}

// FindByID finds a welfare case by ID
func (r *WelfareCaseRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error) {
	var welfareCase models.WelfareCase
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&welfareCase)
	if err != nil {
		return nil, err
	}
	return &welfareCase, nil
}

// FindAll finds welfare cases with pagination, optionally filtered by status
func (r *WelfareCaseRepository) FindAll(ctx context.Context, page, limit int, status models.WelfareCaseStatus) ([]*models.WelfareCase, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cases []*models.WelfareCase
	if err := cursor.All(ctx, &cases); err != nil {
		return nil, err
	}
	if cases == nil {
		cases = []*models.WelfareCase{}
	}
	return cases, nil
}

// Update updates a welfare case
func (r *WelfareCaseRepository) Update(ctx context.Context, welfareCase *models.WelfareCase) error {
	welfareCase.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": welfareCase.ID}, welfareCase)
	return err
}

// IncrementRaised adds a paid contribution amount to the case counter
func (r *WelfareCaseRepository) IncrementRaised(ctx context.Context, id primitive.ObjectID, amount float64) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"raised_amount": amount},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	return err
}

// Count counts all welfare cases
func (r *WelfareCaseRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
