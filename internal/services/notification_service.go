package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
)

// Compile-time check to ensure notificationService implements NotificationService
var _ NotificationService = (*notificationService)(nil)

type notificationService struct {
	notificationRepo repositories.NotificationRepository
}

// NewNotificationService creates a new NotificationService implementation
func NewNotificationService(notificationRepo repositories.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

// ListByMember returns a member's notifications, newest first
func (s *notificationService) ListByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Notification, error) {
	return s.notificationRepo.FindByMember(ctx, memberID, page, limit)
}

// MarkRead marks a notification as read
func (s *notificationService) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	return s.notificationRepo.MarkRead(ctx, id)
}
