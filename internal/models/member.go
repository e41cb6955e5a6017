package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member represents a registered member of the organization
type Member struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	FirstName   string             `json:"firstName" bson:"first_name"`
	LastName    string             `json:"lastName" bson:"last_name"`
	Email       string             `json:"email" bson:"email"`
	PhoneNumber string             `json:"phoneNumber" bson:"phone_number"`
	Password    string             `json:"-" bson:"password"`
	Role        string             `json:"role" bson:"role"`
	Active      bool               `json:"active" bson:"active"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}
