package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/services"
)

// AnnouncementHandler handles announcement endpoints
type AnnouncementHandler struct {
	announcementService services.AnnouncementService
}

// NewAnnouncementHandler creates a new AnnouncementHandler
func NewAnnouncementHandler(announcementService services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService}
}

type createAnnouncementRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// Create handles POST /api/v1/announcements (admin)
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req createAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	announcement := &models.Announcement{
		Title: req.Title,
		Body:  req.Body,
	}
	if err := h.announcementService.Create(c.Request.Context(), announcement); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create announcement"})
		return
	}
	c.JSON(http.StatusCreated, announcement)
}

// List handles GET /api/v1/announcements
func (h *AnnouncementHandler) List(c *gin.Context) {
	page, limit := pagination(c)

	announcements, err := h.announcementService.ListActive(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list announcements"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": announcements, "page": page, "limit": limit})
}

// Delete handles DELETE /api/v1/announcements/:id (admin)
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	if err := h.announcementService.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete announcement"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
