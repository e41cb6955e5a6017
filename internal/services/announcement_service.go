package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/internal/cache"
	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
)

// Compile-time check to ensure announcementService implements AnnouncementService
var _ AnnouncementService = (*announcementService)(nil)

const announcementCacheTTL = 5 * time.Minute

type announcementService struct {
	announcementRepo repositories.AnnouncementRepository
	cache            *cache.Cache
}

// NewAnnouncementService creates a new AnnouncementService implementation
func NewAnnouncementService(announcementRepo repositories.AnnouncementRepository, listCache *cache.Cache) AnnouncementService {
	return &announcementService{
		announcementRepo: announcementRepo,
		cache:            listCache,
	}
}

// Create publishes an announcement and invalidates the cached list
func (s *announcementService) Create(ctx context.Context, announcement *models.Announcement) error {
	announcement.Active = true
	if err := s.announcementRepo.Create(ctx, announcement); err != nil {
		return err
	}
	if err := s.cache.InvalidateAnnouncements(ctx); err != nil {
		slog.Warn("announcement cache invalidation failed", "error", err)
	}
	return nil
}

// GetByID returns an announcement by ID
func (s *announcementService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	return s.announcementRepo.FindByID(ctx, id)
}

// ListActive returns active announcements, caching the first page
func (s *announcementService) ListActive(ctx context.Context, page, limit int) ([]*models.Announcement, error) {
	firstPage := page == 1
	if firstPage {
		if cached, ok := s.cache.GetAnnouncements(ctx); ok {
			return cached, nil
		}
	}

	announcements, err := s.announcementRepo.FindActive(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	if firstPage {
		if err := s.cache.SetAnnouncements(ctx, announcements, announcementCacheTTL); err != nil {
			slog.Warn("announcement cache write failed", "error", err)
		}
	}
	return announcements, nil
}

// Delete removes an announcement and invalidates the cached list
func (s *announcementService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.announcementRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.InvalidateAnnouncements(ctx); err != nil {
		slog.Warn("announcement cache invalidation failed", "error", err)
	}
	return nil
}
