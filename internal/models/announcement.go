package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Announcement represents a notice published to all members
type Announcement struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title" binding:"required"`
	Body        string             `json:"body" bson:"body" binding:"required"`
	Author      string             `json:"author" bson:"author"`
	Active      bool               `json:"active" bson:"active"`
	PublishedAt time.Time          `json:"publishedAt" bson:"published_at"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}
