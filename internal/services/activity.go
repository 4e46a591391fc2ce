package services

import (
	"errors"

	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/internal/policy"
	"github.com/ladybug-tracker/backend/pkg/logger"
	"github.com/ladybug-tracker/backend/pkg/response"
	"gorm.io/gorm"
)

// ActivityService records and serves the append-only project audit trail.
type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// Record appends an activity row. Recording is best-effort: a failure is
// logged and swallowed so it can never fail the use case that triggered it.
func (s *ActivityService) Record(db *gorm.DB, projectID, userID, activityType, message string, bugID *string) {
	if db == nil {
		db = s.db
	}
	activity := models.Activity{
		ProjectID: projectID,
		BugID:     bugID,
		UserID:    userID,
		Type:      activityType,
		Message:   message,
	}
	if err := db.Create(&activity).Error; err != nil {
		logger.Error().Err(err).
			Str("project_id", projectID).
			Str("type", activityType).
			Msg("failed to record activity")
	}
}

// ProjectFeed returns the newest activities of a project, visibility-gated the
// same way as the project itself.
func (s *ActivityService) ProjectFeed(projectID, userID string, limit int) ([]models.Activity, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	membership, err := membershipOf(s.db, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanViewProject(&project, membership); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var activities []models.Activity
	if err := s.db.Where("project_id = ?", projectID).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// MyFeed returns the newest activities across every project the user belongs to.
func (s *ActivityService) MyFeed(userID string, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var projectIDs []string
	if err := s.db.Model(&models.ProjectMember{}).
		Where("user_id = ?", userID).
		Pluck("project_id", &projectIDs).Error; err != nil {
		return nil, err
	}
	if len(projectIDs) == 0 {
		return []models.Activity{}, nil
	}

	var activities []models.Activity
	if err := s.db.Where("project_id IN ?", projectIDs).
		Preload("User").
		Preload("Project").
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
