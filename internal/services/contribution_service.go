package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
	"github.com/jamiihub/jamii-portal-backend/internal/utils"
)

// Compile-time check to ensure contributionService implements ContributionService
var _ ContributionService = (*contributionService)(nil)

type contributionService struct {
	contributionRepo repositories.ContributionRepository
}

// NewContributionService creates a new ContributionService implementation
func NewContributionService(contributionRepo repositories.ContributionRepository) ContributionService {
	return &contributionService{contributionRepo: contributionRepo}
}

// Create records a pledged contribution. It always starts pending; only the
// payment cascade moves it to paid.
func (s *contributionService) Create(ctx context.Context, contribution *models.Contribution) error {
	if contribution.Amount <= 0 {
		return &utils.ValidationError{Field: "amount", Reason: "must be a positive value"}
	}
	contribution.Status = models.ContributionPending
	contribution.ReferenceNumber = ""
	contribution.PaidAt = nil
	return s.contributionRepo.Create(ctx, contribution)
}

// GetByID returns a contribution by ID
func (s *contributionService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	return s.contributionRepo.FindByID(ctx, id)
}

// ListByMember returns a member's contributions with pagination
func (s *contributionService) ListByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Contribution, error) {
	return s.contributionRepo.FindByMember(ctx, memberID, page, limit)
}

// List returns all contributions with pagination
func (s *contributionService) List(ctx context.Context, page, limit int) ([]*models.Contribution, error) {
	return s.contributionRepo.FindAll(ctx, page, limit)
}

// Count returns the total contribution count
func (s *contributionService) Count(ctx context.Context) (int64, error) {
	return s.contributionRepo.Count(ctx)
}
