package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/internal/policy"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type AssignmentService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewAssignmentService(db *gorm.DB, activity *ActivityService) *AssignmentService {
	return &AssignmentService{db: db, activity: activity}
}

type RejectAssignmentRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=500"`
}

func (s *AssignmentService) findAssignment(assignmentID string) (*models.BugAssignment, error) {
	var assignment models.BugAssignment
	err := s.db.Preload("Bug").
		Preload("Assignee").Preload("Assignee.User").
		Preload("Assigner").Preload("Assigner.User").
		First(&assignment, "id = ?", assignmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("assignment not found")
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Accept confirms a pending assignment. Only the designated assignee's user
// may accept, and only while the offer is PENDING. The assignment and the bug
// move together in one transaction: ACCEPTED and IN_PROGRESS.
func (s *AssignmentService) Accept(assignmentID, userID string) (*models.BugAssignment, error) {
	assignment, err := s.findAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanRespondToAssignment(assignment, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(assignment).Updates(map[string]interface{}{
			"status":       models.AssignmentAccepted,
			"responded_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bug{}).
			Where("id = ?", assignment.BugID).
			Update("status", models.BugStatusInProgress).Error
	}); err != nil {
		return nil, err
	}

	if assignment.Bug != nil {
		s.activity.Record(nil, assignment.Bug.ProjectID, userID, models.ActivityAssignmentAccepted,
			fmt.Sprintf("%s accepted the assignment for bug: %s", userName(s.db, userID), assignment.Bug.Title),
			&assignment.BugID)
	}

	return assignment, nil
}

// Reject declines a pending assignment with a reason. The rejected row stays
// as history; the bug returns to the triage pool, unassigned and REPORTED, in
// the same transaction.
func (s *AssignmentService) Reject(assignmentID, userID, reason string) (*models.BugAssignment, error) {
	assignment, err := s.findAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanRespondToAssignment(assignment, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(assignment).Updates(map[string]interface{}{
			"status":           models.AssignmentRejected,
			"rejection_reason": reason,
			"responded_at":     now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bug{}).
			Where("id = ?", assignment.BugID).
			Updates(map[string]interface{}{
				"assignee_id": nil,
				"status":      models.BugStatusReported,
			}).Error
	}); err != nil {
		return nil, err
	}

	if assignment.Bug != nil {
		s.activity.Record(nil, assignment.Bug.ProjectID, userID, models.ActivityAssignmentRejected,
			fmt.Sprintf("%s rejected the assignment for bug: %s", userName(s.db, userID), assignment.Bug.Title),
			&assignment.BugID)
	}

	return assignment, nil
}

// ListMine returns assignments addressed to any of the caller's memberships,
// newest first, optionally filtered by status.
func (s *AssignmentService) ListMine(userID, status string) ([]models.BugAssignment, error) {
	memberIDs := s.db.Model(&models.ProjectMember{}).Select("id").Where("user_id = ?", userID)

	query := s.db.Preload("Bug").Preload("Bug.Project").
		Preload("Assigner").Preload("Assigner.User").
		Where("assigned_to IN (?)", memberIDs)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var assignments []models.BugAssignment
	if err := query.Order("assigned_at DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListPending returns the caller's open offers.
func (s *AssignmentService) ListPending(userID string) ([]models.BugAssignment, error) {
	return s.ListMine(userID, models.AssignmentPending)
}

// History returns every assignment ever made on a bug, newest first. Members
// of the bug's project only.
func (s *AssignmentService) History(bugID, userID string) ([]models.BugAssignment, error) {
	var bug models.Bug
	if err := s.db.First(&bug, "id = ?", bugID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("bug not found")
		}
		return nil, err
	}

	membership, err := membershipOf(s.db, bug.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireMember(membership); err != nil {
		return nil, err
	}

	var assignments []models.BugAssignment
	if err := s.db.Preload("Assignee").Preload("Assignee.User").
		Preload("Assigner").Preload("Assigner.User").
		Where("bug_id = ?", bugID).
		Order("assigned_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}
