package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContributionStatus is the payment status of a contribution
type ContributionStatus string

const (
	ContributionPending ContributionStatus = "pending"
	ContributionPaid    ContributionStatus = "paid"
)

// Contribution represents a member's pledged payment towards a welfare case
// or a general fund. Marked paid by the payment callback cascade.
type Contribution struct {
	ID              primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID        primitive.ObjectID  `json:"memberId" bson:"member_id"`
	WelfareCaseID   *primitive.ObjectID `json:"welfareCaseId,omitempty" bson:"welfare_case_id,omitempty"`
	Purpose         string              `json:"purpose" bson:"purpose"`
	Amount          float64             `json:"amount" bson:"amount"`
	Status          ContributionStatus  `json:"status" bson:"status"`
	ReferenceNumber string              `json:"referenceNumber,omitempty" bson:"reference_number,omitempty"`
	PaidAt          *time.Time          `json:"paidAt,omitempty" bson:"paid_at,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updated_at"`
}
