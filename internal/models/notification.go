package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType identifies what triggered a notification
type NotificationType string

const (
	NotificationPayment      NotificationType = "payment"
	NotificationWelfare      NotificationType = "welfare"
	NotificationAnnouncement NotificationType = "announcement"
)

// Notification is an in-app notification row for a member. SMS delivery,
// when enabled, is best-effort and recorded in SMSMessageID.
type Notification struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID     primitive.ObjectID `json:"memberId" bson:"member_id"`
	Type         NotificationType   `json:"type" bson:"type"`
	Title        string             `json:"title" bson:"title"`
	Message      string             `json:"message" bson:"message"`
	Read         bool               `json:"read" bson:"read"`
	SMSMessageID string             `json:"smsMessageId,omitempty" bson:"sms_message_id,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}
