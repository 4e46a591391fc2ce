package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/middleware"
	"github.com/ladybug-tracker/backend/internal/services"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type ActivityHandler struct {
	activityService *services.ActivityService
	projectService  *services.ProjectService
}

func NewActivityHandler(db *gorm.DB) *ActivityHandler {
	activity := services.NewActivityService(db)
	return &ActivityHandler{
		activityService: activity,
		projectService:  services.NewProjectService(db, activity),
	}
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		return 50
	}
	return limit
}

// ProjectFeed returns the newest activities of a project.
// GET /api/projects/:id/activities
func (h *ActivityHandler) ProjectFeed(c *gin.Context) {
	activities, err := h.activityService.ProjectFeed(c.Param("id"), middleware.GetUserID(c), limitParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, activities)
}

// MyFeed returns activities across the caller's projects.
// GET /api/activities/my
func (h *ActivityHandler) MyFeed(c *gin.Context) {
	activities, err := h.activityService.MyFeed(middleware.GetUserID(c), limitParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, activities)
}

// MyStats returns the caller's aggregate footprint.
// GET /api/activities/my/stats
func (h *ActivityHandler) MyStats(c *gin.Context) {
	stats, err := h.projectService.MyStats(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
