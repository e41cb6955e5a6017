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

// ContributionRepository implements the repositories.ContributionRepository interface
type ContributionRepository struct {
	collection *mongo.Collection
}

// NewContributionRepository creates a new ContributionRepository
func NewContributionRepository(db *mongo.Database) repositories.ContributionRepository {
	return &ContributionRepository{
		collection: db.Collection("contributions"),
	}
}

// Create creates a new contribution
func (r *ContributionRepository) Create(ctx context.Context, contribution *models.Contribution) error {
	contribution.CreatedAt = time.Now()
	contribution.UpdatedAt = time.Now()
	if contribution.Status == "" {
		contribution.Status = models.ContributionPending
	}
	_, err := r.collection.InsertOne(ctx, contribution)
	return err
}

// FindByID finds a contribution by ID
func (r *ContributionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	var contribution models.Contribution
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contribution)
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

// FindByMember finds contributions by member with pagination
func (r *ContributionRepository) FindByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Contribution, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"member_id": memberID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contributions []*models.Contribution
	if err := cursor.All(ctx, &contributions); err != nil {
		return nil, err
	}
	if contributions == nil {
		contributions = []*models.Contribution{}
	}
	return contributions, nil
}

// FindAll finds all contributions with pagination
func (r *ContributionRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Contribution, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contributions []*models.Contribution
	if err := cursor.All(ctx, &contributions); err != nil {
		return nil, err
	}
	if contributions == nil {
		contributions = []*models.Contribution{}
	}
	return contributions, nil
}

// MarkPaid sets a contribution to paid with its payment reference. The
// filter excludes already paid rows so the payment cascade applies exactly
// once even when a callback is redelivered.
func (r *ContributionRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, referenceNumber string, paidAt time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.ContributionPaid}},
		bson.M{"$set": bson.M{
			"status":           models.ContributionPaid,
			"reference_number": referenceNumber,
			"paid_at":          paidAt,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// Count counts all contributions
func (r *ContributionRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
