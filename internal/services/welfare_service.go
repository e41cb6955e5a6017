package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
	"github.com/jamiihub/jamii-portal-backend/internal/utils"
)

// Compile-time check to ensure welfareService implements WelfareService
var _ WelfareService = (*welfareService)(nil)

type welfareService struct {
	welfareRepo      repositories.WelfareCaseRepository
	notificationRepo repositories.NotificationRepository
}

// NewWelfareService creates a new WelfareService implementation
func NewWelfareService(welfareRepo repositories.WelfareCaseRepository, notificationRepo repositories.NotificationRepository) WelfareService {
	return &welfareService{
		welfareRepo:      welfareRepo,
		notificationRepo: notificationRepo,
	}
}

// Create opens a new welfare case
func (s *welfareService) Create(ctx context.Context, welfareCase *models.WelfareCase) error {
	if welfareCase.TargetAmount <= 0 {
		return &utils.ValidationError{Field: "targetAmount", Reason: "must be a positive value"}
	}
	welfareCase.Status = models.WelfareCaseOpen
	welfareCase.RaisedAmount = 0
	return s.welfareRepo.Create(ctx, welfareCase)
}

// GetByID returns a welfare case by ID
func (s *welfareService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error) {
	return s.welfareRepo.FindByID(ctx, id)
}

// List returns welfare cases with pagination, optionally filtered by status
func (s *welfareService) List(ctx context.Context, page, limit int, status models.WelfareCaseStatus) ([]*models.WelfareCase, error) {
	return s.welfareRepo.FindAll(ctx, page, limit, status)
}

// Approve moves an open case to approved and notifies the beneficiary
func (s *welfareService) Approve(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error) {
	welfareCase, err := s.welfareRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if welfareCase.Status != models.WelfareCaseOpen {
		return nil, fmt.Errorf("welfare case %s is %s, only open cases can be approved", id.Hex(), welfareCase.Status)
	}

	welfareCase.Status = models.WelfareCaseApproved
	if err := s.welfareRepo.Update(ctx, welfareCase); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		MemberID: welfareCase.MemberID,
		Type:     models.NotificationWelfare,
		Title:    "Welfare case approved",
		Message:  fmt.Sprintf("Your welfare case %q has been approved for contributions.", welfareCase.Title),
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		slog.Warn("failed to create welfare notification", "welfareCaseId", id.Hex(), "error", err)
	}

	return welfareCase, nil
}

// Close moves a case to closed
func (s *welfareService) Close(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error) {
	welfareCase, err := s.welfareRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if welfareCase.Status == models.WelfareCaseClosed {
		return welfareCase, nil
	}

	welfareCase.Status = models.WelfareCaseClosed
	if err := s.welfareRepo.Update(ctx, welfareCase); err != nil {
		return nil, err
	}
	return welfareCase, nil
}
