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

// MemberRepository implements the repositories.MemberRepository interface
type MemberRepository struct {
	collection *mongo.Collection
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *mongo.Database) repositories.MemberRepository {
	return &MemberRepository{
		collection: db.Collection("members"),
	}
}

// Create creates a new member
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, member)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		member.ID = oid
	}
	return nil
}

// FindByID finds a member by ID
func (r *MemberRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var member models.Member
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByEmail finds a member by email
func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByPhone finds a member by normalized phone number
func (r *MemberRepository) FindByPhone(ctx context.Context, phoneNumber string) (*models.Member, error) {
	var member models.Member
	err := r.collection.FindOne(ctx, bson.M{"phone_number": phoneNumber}).Decode(&member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindAll finds all members with pagination
func (r *MemberRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Member, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var members []*models.Member
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	if members == nil {
		members = []*models.Member{}
	}
	return members, nil
}

// Update updates a member
func (r *MemberRepository) Update(ctx context.Context, member *models.Member) error {
	member.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": member.ID}, member)
	return err
}

// Count counts all members
func (r *MemberRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
