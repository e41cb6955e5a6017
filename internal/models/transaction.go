package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionStatus is the lifecycle status of a payment transaction.
// pending is the only non-terminal status; a terminal status never reverts.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionTimeout   TransactionStatus = "timeout"
)

// Terminal reports whether the status is final.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionCompleted || s == TransactionFailed || s == TransactionTimeout
}

// PaymentProvider identifies which gateway issued the correlation id.
type PaymentProvider string

const (
	ProviderMpesa   PaymentProvider = "mpesa"
	ProviderPesapal PaymentProvider = "pesapal"
)

// Transaction represents one payment attempt. The correlation id is the
// provider-issued key (Daraja CheckoutRequestID or Pesapal OrderTrackingId)
// and is the sole lookup key for both the callback and polling paths.
type Transaction struct {
	ID                 primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	CorrelationID      string              `json:"correlationId" bson:"correlation_id"`
	MerchantRequestID  string              `json:"merchantRequestId,omitempty" bson:"merchant_request_id,omitempty"`
	Provider           PaymentProvider     `json:"provider" bson:"provider"`
	Amount             float64             `json:"amount" bson:"amount"`
	PhoneNumber        string              `json:"phoneNumber" bson:"phone_number"`
	AccountReference   string              `json:"accountReference" bson:"account_reference"`
	Description        string              `json:"description,omitempty" bson:"description,omitempty"`
	Status             TransactionStatus   `json:"status" bson:"status"`
	MpesaReceiptNumber string              `json:"mpesaReceiptNumber,omitempty" bson:"mpesa_receipt_number,omitempty"`
	ResultCode         int                 `json:"resultCode" bson:"result_code"`
	ResultDesc         string              `json:"resultDesc,omitempty" bson:"result_desc,omitempty"`
	TransactionDate    *time.Time          `json:"transactionDate,omitempty" bson:"transaction_date,omitempty"`
	ContributionID     *primitive.ObjectID `json:"contributionId,omitempty" bson:"contribution_id,omitempty"`
	CreatedAt          time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updatedAt" bson:"updated_at"`
}

// STKPushRequest is the client-facing payload for initiating an M-Pesa payment.
type STKPushRequest struct {
	Amount           float64 `json:"amount" binding:"required"`
	PhoneNumber      string  `json:"phoneNumber" binding:"required"`
	AccountReference string  `json:"accountReference" binding:"required"`
	Description      string  `json:"description"`
	ContributionID   string  `json:"contributionId"`
}

// PesapalOrderRequest is the client-facing payload for a Pesapal card/mobile order.
type PesapalOrderRequest struct {
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency"`
	Email          string  `json:"email" binding:"required,email"`
	PhoneNumber    string  `json:"phoneNumber" binding:"required"`
	Description    string  `json:"description"`
	ContributionID string  `json:"contributionId"`
}
