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

// AnnouncementRepository implements the repositories.AnnouncementRepository interface
type AnnouncementRepository struct {
	collection *mongo.Collection
}

// NewAnnouncementRepository creates a new AnnouncementRepository
func NewAnnouncementRepository(db *mongo.Database) repositories.AnnouncementRepository {
	return &AnnouncementRepository{
		collection: db.Collection("announcements"),
	}
}

// Create creates a new announcement
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	announcement.CreatedAt = time.Now()
	announcement.UpdatedAt = time.Now()
	if announcement.PublishedAt.IsZero() {
		announcement.PublishedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, announcement)
	return err
}

// FindByID finds an announcement by ID
func (r *AnnouncementRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	var announcement models.Announcement
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&announcement)
	if err != nil {
		return nil, err
	}
	return &announcement, nil
}

// FindActive finds active announcements, newest first, with pagination
func (r *AnnouncementRepository) FindActive(ctx context.Context, page, limit int) ([]*models.Announcement, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"published_at": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var announcements []*models.Announcement
	if err := cursor.All(ctx, &announcements); err != nil {
		return nil, err
	}
	if announcements == nil {
		announcements = []*models.Announcement{}
	}
	return announcements, nil
}

// Delete deletes an announcement
func (r *AnnouncementRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Count counts all announcements
func (r *AnnouncementRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
