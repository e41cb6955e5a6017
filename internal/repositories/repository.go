package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/reconcile"
)

// TransactionUpdate is the terminal state a callback applies to a pending
// transaction row.
type TransactionUpdate struct {
	Status          models.TransactionStatus
	ReceiptNumber   string
	ResultCode      int
	ResultDesc      string
	TransactionDate *time.Time
}

// TransactionRepository defines the interface for payment transaction data
// operations. CompleteIfPending is the idempotency guard: it mutates only
// rows still in pending, so concurrent or redelivered callbacks apply at
// most once.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByCorrelationID(ctx context.Context, correlationID string) (*models.Transaction, error)
	FindRecent(ctx context.Context, page, limit int) ([]*models.Transaction, error)
	CompleteIfPending(ctx context.Context, correlationID string, update TransactionUpdate) (bool, error)
	SweepPending(ctx context.Context, olderThan time.Time) (int64, error)
	Watch(ctx context.Context, correlationID string) (reconcile.Feed, error)
	Count(ctx context.Context) (int64, error)
}

// ContributionRepository defines the interface for contribution data
// operations. MarkPaid only applies to unpaid rows, which keeps the payment
// cascade exactly-once under webhook redelivery.
type ContributionRepository interface {
	Create(ctx context.Context, contribution *models.Contribution) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error)
	FindByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Contribution, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Contribution, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, referenceNumber string, paidAt time.Time) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	FindByPhone(ctx context.Context, phoneNumber string) (*models.Member, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	Count(ctx context.Context) (int64, error)
}

// WelfareCaseRepository defines the interface for welfare case data
// operations. IncrementRaised is the tracking-counter cascade target.
type WelfareCaseRepository interface {
	Create(ctx context.Context, welfareCase *models.WelfareCase) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error)
	FindAll(ctx context.Context, page, limit int, status models.WelfareCaseStatus) ([]*models.WelfareCase, error)
	Update(ctx context.Context, welfareCase *models.WelfareCase) error
	IncrementRaised(ctx context.Context, id primitive.ObjectID, amount float64) error
	Count(ctx context.Context) (int64, error)
}

// AnnouncementRepository defines the interface for announcement data operations
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error)
	FindActive(ctx context.Context, page, limit int) ([]*models.Announcement, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}
