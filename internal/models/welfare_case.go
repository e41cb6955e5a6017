package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WelfareCaseStatus string

const (
	WelfareCaseOpen     WelfareCaseStatus = "open"
	WelfareCaseApproved WelfareCaseStatus = "approved"
	WelfareCaseClosed   WelfareCaseStatus = "closed"
)

// WelfareCase represents a fundraising case for a member in need.
// RaisedAmount is incremented each time a linked contribution is paid.
type WelfareCase struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	Description  string             `json:"description" bson:"description"`
	MemberID     primitive.ObjectID `json:"memberId" bson:"member_id"`
	Status       WelfareCaseStatus  `json:"status" bson:"status"`
	TargetAmount float64            `json:"targetAmount" bson:"target_amount"`
	RaisedAmount float64            `json:"raisedAmount" bson:"raised_amount"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}
