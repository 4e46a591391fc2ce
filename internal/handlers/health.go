package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ladybug-tracker/backend/internal/models"
)

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of the service and its database.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	var openBugs int64
	if overall == "healthy" {
		models.GetDB().Model(&models.Bug{}).
			Where("status NOT IN ?", []string{models.BugStatusClosed}).
			Count(&openBugs)
	}

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "ladybug",
		"components": gin.H{
			"database":  dbStatus,
			"open_bugs": openBugs,
		},
	})
}
