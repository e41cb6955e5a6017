package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
	"github.com/jamiihub/jamii-portal-backend/internal/utils"
)

// Compile-time check to ensure memberService implements MemberService
var _ MemberService = (*memberService)(nil)

type memberService struct {
	memberRepo repositories.MemberRepository
	jwtSecret  string
	jwtExpiry  time.Duration
}

// NewMemberService creates a new MemberService implementation
func NewMemberService(memberRepo repositories.MemberRepository, jwtSecret string, jwtExpiry time.Duration) MemberService {
	return &memberService{
		memberRepo: memberRepo,
		jwtSecret:  jwtSecret,
		jwtExpiry:  jwtExpiry,
	}
}

// Register creates a new member with a hashed password
func (s *memberService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Member, error) {
	phone, err := utils.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if _, err := s.memberRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &models.Member{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: phone,
		Password:    string(hashed),
		Role:        "member",
		Active:      true,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	slog.Info("member registered", "memberId", member.ID.Hex(), "email", member.Email)
	return member, nil
}

// Login verifies credentials and issues a signed JWT
func (s *memberService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	member, err := s.memberRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if !member.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.signToken(member)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.LoginResponse{Token: token, Member: member}, nil
}

func (s *memberService) signToken(member *models.Member) (string, error) {
	claims := jwt.MapClaims{
		"sub":   member.ID.Hex(),
		"email": member.Email,
		"role":  member.Role,
		"exp":   time.Now().Add(s.jwtExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetByID returns a member by ID
func (s *memberService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	return s.memberRepo.FindByID(ctx, id)
}

// List returns members with pagination
func (s *memberService) List(ctx context.Context, page, limit int) ([]*models.Member, error) {
	return s.memberRepo.FindAll(ctx, page, limit)
}

// Count returns the total member count
func (s *memberService) Count(ctx context.Context) (int64, error) {
	return s.memberRepo.Count(ctx)
}
