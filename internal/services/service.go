package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/reconcile"
	"github.com/jamiihub/jamii-portal-backend/pkg/daraja"
)

// PaymentService defines the interface for payment initiation, callback
// application and status reconciliation
type PaymentService interface {
	// InitiateSTKPush validates the request, asks Daraja to prompt the payer
	// and records the pending transaction row
	InitiateSTKPush(ctx context.Context, req *models.STKPushRequest) (*models.Transaction, error)

	// SubmitPesapalOrder registers a Pesapal order and returns the pending
	// transaction plus the hosted payment page URL
	SubmitPesapalOrder(ctx context.Context, req *models.PesapalOrderRequest) (*models.Transaction, string, error)

	// HandleMpesaCallback applies an asynchronous Daraja result to the
	// transaction row, idempotently, and cascades to dependent rows
	HandleMpesaCallback(ctx context.Context, cb *daraja.StkCallback) error

	// HandlePesapalIPN re-queries Pesapal for the order referenced by an IPN
	// and applies the classified outcome
	HandlePesapalIPN(ctx context.Context, orderTrackingID string) error

	// GetTransaction reads a transaction by correlation id
	GetTransaction(ctx context.Context, correlationID string) (*models.Transaction, error)

	// ListRecent reads transactions newest first, for admin review
	ListRecent(ctx context.Context, page, limit int) ([]*models.Transaction, error)

	// QueryPesapalStatus relays an order-status query and classifies the
	// free-text description
	QueryPesapalStatus(ctx context.Context, orderTrackingID string) (*PesapalStatusResult, error)

	// Watch starts a reconciling watcher (poll + change feed) for one
	// correlation id
	Watch(ctx context.Context, correlationID string) (*reconcile.Watcher, error)
}

// PesapalStatusResult is the classified outcome of an order-status relay
type PesapalStatusResult struct {
	Status           string `json:"status"`
	Description      string `json:"description"`
	ConfirmationCode string `json:"confirmationCode,omitempty"`
}

// MemberService defines the interface for member registration, login and
// profile operations
type MemberService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Member, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	List(ctx context.Context, page, limit int) ([]*models.Member, error)
	Count(ctx context.Context) (int64, error)
}

// ContributionService defines the interface for contribution operations.
// Contributions move to paid only through the payment callback cascade.
type ContributionService interface {
	Create(ctx context.Context, contribution *models.Contribution) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Contribution, error)
	List(ctx context.Context, page, limit int) ([]*models.Contribution, error)
	Count(ctx context.Context) (int64, error)
}

// WelfareService defines the interface for welfare case operations
type WelfareService interface {
	Create(ctx context.Context, welfareCase *models.WelfareCase) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error)
	List(ctx context.Context, page, limit int, status models.WelfareCaseStatus) ([]*models.WelfareCase, error)
	Approve(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error)
	Close(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error)
}

// AnnouncementService defines the interface for announcement operations
type AnnouncementService interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error)
	ListActive(ctx context.Context, page, limit int) ([]*models.Announcement, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// NotificationService defines the interface for member notification reads
type NotificationService interface {
	ListByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
}
