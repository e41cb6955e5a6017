package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/services"
	"github.com/jamiihub/jamii-portal-backend/internal/utils"
)

// WelfareHandler handles welfare case endpoints
type WelfareHandler struct {
	welfareService services.WelfareService
}

// NewWelfareHandler creates a new WelfareHandler
func NewWelfareHandler(welfareService services.WelfareService) *WelfareHandler {
	return &WelfareHandler{welfareService: welfareService}
}

type createWelfareCaseRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description" binding:"required"`
	TargetAmount float64 `json:"targetAmount" binding:"required"`
}

// Create handles POST /api/v1/welfare
func (h *WelfareHandler) Create(c *gin.Context) {
	var req createWelfareCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID, err := primitive.ObjectIDFromHex(c.GetString("memberId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return
	}

	welfareCase := &models.WelfareCase{
		Title:        req.Title,
		Description:  req.Description,
		MemberID:     memberID,
		TargetAmount: req.TargetAmount,
	}
	if err := h.welfareService.Create(c.Request.Context(), welfareCase); err != nil {
		var validationErr *utils.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create welfare case"})
		return
	}

	c.JSON(http.StatusCreated, welfareCase)
}

// Get handles GET /api/v1/welfare/:id
func (h *WelfareHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid welfare case id"})
		return
	}

	welfareCase, err := h.welfareService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "welfare case not found"})
		return
	}
	c.JSON(http.StatusOK, welfareCase)
}

// List handles GET /api/v1/welfare
func (h *WelfareHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	status := models.WelfareCaseStatus(c.Query("status"))

	cases, err := h.welfareService.List(c.Request.Context(), page, limit, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list welfare cases"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": cases, "page": page, "limit": limit})
}

// Approve handles POST /api/v1/welfare/:id/approve (admin)
func (h *WelfareHandler) Approve(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid welfare case id"})
		return
	}

	welfareCase, err := h.welfareService.Approve(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, welfareCase)
}

// Close handles POST /api/v1/welfare/:id/close (admin)
func (h *WelfareHandler) Close(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid welfare case id"})
		return
	}

	welfareCase, err := h.welfareService.Close(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close welfare case"})
		return
	}
	c.JSON(http.StatusOK, welfareCase)
}
