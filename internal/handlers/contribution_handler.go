package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/services"
	"github.com/jamiihub/jamii-portal-backend/internal/utils"
)

// ContributionHandler handles contribution endpoints
type ContributionHandler struct {
	contributionService services.ContributionService
}

// NewContributionHandler creates a new ContributionHandler
func NewContributionHandler(contributionService services.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributionService: contributionService}
}

type createContributionRequest struct {
	WelfareCaseID string  `json:"welfareCaseId"`
	Purpose       string  `json:"purpose" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
}

// Create handles POST /api/v1/contributions. The contribution belongs to the
// authenticated member and starts pending until a payment settles it.
func (h *ContributionHandler) Create(c *gin.Context) {
	var req createContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID, err := primitive.ObjectIDFromHex(c.GetString("memberId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return
	}

	contribution := &models.Contribution{
		MemberID: memberID,
		Purpose:  req.Purpose,
		Amount:   req.Amount,
	}
	if req.WelfareCaseID != "" {
		welfareCaseID, err := primitive.ObjectIDFromHex(req.WelfareCaseID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid welfareCaseId"})
			return
		}
		contribution.WelfareCaseID = &welfareCaseID
	}

	if err := h.contributionService.Create(c.Request.Context(), contribution); err != nil {
		var validationErr *utils.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create contribution"})
		return
	}

	c.JSON(http.StatusCreated, contribution)
}

// Get handles GET /api/v1/contributions/:id
func (h *ContributionHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
		return
	}

	contribution, err := h.contributionService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contribution not found"})
		return
	}
	c.JSON(http.StatusOK, contribution)
}

// ListMine handles GET /api/v1/contributions/mine
func (h *ContributionHandler) ListMine(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.GetString("memberId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return
	}

	page, limit := pagination(c)
	contributions, err := h.contributionService.ListByMember(c.Request.Context(), memberID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contributions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributions": contributions, "page": page, "limit": limit})
}

// List handles GET /api/v1/contributions (admin)
func (h *ContributionHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	contributions, err := h.contributionService.List(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contributions"})
		return
	}
	total, err := h.contributionService.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count contributions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributions": contributions, "total": total, "page": page, "limit": limit})
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
