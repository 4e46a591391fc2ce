package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/internal/policy"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type BugService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewBugService(db *gorm.DB, activity *ActivityService) *BugService {
	return &BugService{db: db, activity: activity}
}

type CreateBugRequest struct {
	ProjectID   string `json:"project_id" binding:"required"`
	Title       string `json:"title" binding:"required,min=3,max=300"`
	Description string `json:"description" binding:"required"`
	Severity    string `json:"severity" binding:"required"`
	Priority    string `json:"priority" binding:"required"`
}

type UpdateBugRequest struct {
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	Severity        string  `json:"severity"`
	Priority        string  `json:"priority"`
	GithubCommitURL *string `json:"github_commit_url"`
}

type BugListRequest struct {
	ProjectID string `form:"project_id"`
	Status    string `form:"status"`
	Severity  string `form:"severity"`
}

// BugDetail embeds the caller's membership in the bug's project, or nil when
// the caller sees the bug only because the project is public.
type BugDetail struct {
	Bug        *models.Bug           `json:"bug"`
	Membership *models.ProjectMember `json:"membership"`
}

func (s *BugService) findBug(bugID string) (*models.Bug, error) {
	var bug models.Bug
	err := s.db.Preload("Project").
		Preload("Reporter").Preload("Reporter.User").
		Preload("Assignee").Preload("Assignee.User").
		First(&bug, "id = ?", bugID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("bug not found")
	}
	if err != nil {
		return nil, err
	}
	return &bug, nil
}

// Create files a new bug. Any member of the project may report; the bug
// starts unassigned in REPORTED.
func (s *BugService) Create(userID string, req *CreateBugRequest) (*models.Bug, error) {
	membership, err := membershipOf(s.db, req.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireMember(membership); err != nil {
		return nil, err
	}

	if !models.ValidSeverity(req.Severity) {
		return nil, response.NewBadRequest("severity must be CRITICAL, HIGH, MEDIUM or LOW")
	}
	if !models.ValidPriority(req.Priority) {
		return nil, response.NewBadRequest("priority must be HIGH, MEDIUM or LOW")
	}

	bug := models.Bug{
		ProjectID:   req.ProjectID,
		ReporterID:  membership.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Severity:    req.Severity,
		Priority:    req.Priority,
		Status:      models.BugStatusReported,
	}
	if err := s.db.Create(&bug).Error; err != nil {
		return nil, err
	}

	s.activity.Record(nil, bug.ProjectID, userID, models.ActivityBugReported,
		fmt.Sprintf("%s reported bug: %s", userName(s.db, userID), bug.Title), &bug.ID)

	return &bug, nil
}

// List returns bugs the user may see. Filters narrow the fetch; visibility is
// applied afterwards over the whole result, so a private project's bugs never
// leak through any filter combination.
func (s *BugService) List(userID string, req *BugListRequest) ([]models.Bug, error) {
	query := s.db.Preload("Project").Preload("Project.Members").
		Preload("Reporter").Preload("Reporter.User").
		Preload("Assignee").Preload("Assignee.User")

	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Severity != "" {
		query = query.Where("severity = ?", req.Severity)
	}

	var bugs []models.Bug
	if err := query.Order("created_at DESC").Find(&bugs).Error; err != nil {
		return nil, err
	}

	return policy.VisibleBugs(bugs, userID), nil
}

// Get returns one bug with its parties resolved. Bugs of private projects are
// members-only.
func (s *BugService) Get(bugID, userID string) (*BugDetail, error) {
	bug, err := s.findBug(bugID)
	if err != nil {
		return nil, err
	}

	membership, err := membershipOf(s.db, bug.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if bug.Project != nil {
		if err := policy.CanViewProject(bug.Project, membership); err != nil {
			return nil, err
		}
	}

	return &BugDetail{Bug: bug, Membership: membership}, nil
}

// Update edits bug fields. Only the current assignee may edit.
func (s *BugService) Update(bugID, userID string, req *UpdateBugRequest) (*models.Bug, error) {
	bug, err := s.findBug(bugID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyBug(bug, userID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != "" {
		updates["title"] = strings.TrimSpace(req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Severity != "" {
		if !models.ValidSeverity(req.Severity) {
			return nil, response.NewBadRequest("severity must be CRITICAL, HIGH, MEDIUM or LOW")
		}
		updates["severity"] = req.Severity
	}
	if req.Priority != "" {
		if !models.ValidPriority(req.Priority) {
			return nil, response.NewBadRequest("priority must be HIGH, MEDIUM or LOW")
		}
		updates["priority"] = req.Priority
	}
	if req.GithubCommitURL != nil {
		updates["github_commit_url"] = *req.GithubCommitURL
	}

	if len(updates) > 0 {
		if err := s.db.Model(bug).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.activity.Record(nil, bug.ProjectID, userID, models.ActivityBugUpdated,
			fmt.Sprintf("%s updated bug: %s", userName(s.db, userID), bug.Title), &bug.ID)
	}

	return bug, nil
}

// AssignToMember offers a bug to another manager. Only the project creator
// may do this, the target must be a manager of the same project, and the bug
// must be unassigned and still REPORTED; closed bugs never re-enter the
// assignment flow. Creates a PENDING assignment, points the bug at the
// assignee and moves it to ASSIGNED, all in one transaction.
func (s *BugService) AssignToMember(bugID, actorUserID, assigneeMemberID string) (*models.BugAssignment, error) {
	bug, err := s.findBug(bugID)
	if err != nil {
		return nil, err
	}

	actor, err := membershipOf(s.db, bug.ProjectID, actorUserID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanAssignToOthers(actor); err != nil {
		return nil, err
	}

	if bug.AssigneeID != nil {
		return nil, response.NewConflict("bug is already assigned")
	}
	if bug.Status != models.BugStatusReported {
		return nil, response.NewBadRequest(
			fmt.Sprintf("only bugs in %s status can be assigned, current status is %s", models.BugStatusReported, bug.Status))
	}

	var target models.ProjectMember
	if err := s.db.Preload("User").First(&target, "id = ?", assigneeMemberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewBadRequest("assignee is not a member of this project")
		}
		return nil, err
	}
	if err := policy.ValidateAssignee(bug, &target); err != nil {
		return nil, err
	}

	assignment := models.BugAssignment{
		BugID:      bug.ID,
		AssignedTo: target.ID,
		AssignedBy: actor.ID,
		Status:     models.AssignmentPending,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
		// Conditional write: a concurrent assign between our read and this
		// update must lose, not silently overwrite.
		res := tx.Model(bug).
			Where("assignee_id IS NULL AND status = ?", models.BugStatusReported).
			Updates(map[string]interface{}{
				"assignee_id": target.ID,
				"status":      models.BugStatusAssigned,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewConflict("bug is already assigned")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	assignee := "a manager"
	if target.User != nil {
		assignee = target.User.Name
	}
	s.activity.Record(nil, bug.ProjectID, actorUserID, models.ActivityBugAssigned,
		fmt.Sprintf("%s assigned bug to %s: %s", userName(s.db, actorUserID), assignee, bug.Title), &bug.ID)

	return &assignment, nil
}

// SelfAssign lets a manager take an unassigned bug directly. No assignment
// offer is created; the bug jumps straight to IN_PROGRESS.
func (s *BugService) SelfAssign(bugID, userID string) (*models.Bug, error) {
	bug, err := s.findBug(bugID)
	if err != nil {
		return nil, err
	}

	actor, err := membershipOf(s.db, bug.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanSelfAssign(bug, actor); err != nil {
		return nil, err
	}

	res := s.db.Model(bug).
		Where("assignee_id IS NULL AND status <> ?", models.BugStatusClosed).
		Updates(map[string]interface{}{
			"assignee_id": actor.ID,
			"status":      models.BugStatusInProgress,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, response.NewBadRequest("bug is already assigned; only unassigned bugs can be self-assigned")
	}

	s.activity.Record(nil, bug.ProjectID, userID, models.ActivityBugSelfAssigned,
		fmt.Sprintf("%s self-assigned bug: %s", userName(s.db, userID), bug.Title), &bug.ID)

	return bug, nil
}

// UpdateStatus moves the bug to any non-REPORTED status. Assignee only. No
// transition graph is enforced here; ownership is the guard.
func (s *BugService) UpdateStatus(bugID, userID, status string) (*models.Bug, error) {
	if !models.ValidUpdatableStatus(status) {
		return nil, response.NewBadRequest("status must be ASSIGNED, IN_PROGRESS, RESOLVED, IN_TESTING or CLOSED")
	}

	bug, err := s.findBug(bugID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyBug(bug, userID); err != nil {
		return nil, err
	}

	previous := bug.Status
	if err := s.db.Model(bug).Update("status", status).Error; err != nil {
		return nil, err
	}

	s.activity.Record(nil, bug.ProjectID, userID, models.ActivityBugStatusChanged,
		fmt.Sprintf("%s moved bug from %s to %s: %s", userName(s.db, userID), previous, status, bug.Title), &bug.ID)

	return bug, nil
}

// Resolve marks the bug RESOLVED with an optional commit reference. Assignee
// only.
func (s *BugService) Resolve(bugID, userID string, commitURL *string) (*models.Bug, error) {
	bug, err := s.findBug(bugID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyBug(bug, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      models.BugStatusResolved,
		"resolved_at": now,
	}
	if commitURL != nil && *commitURL != "" {
		updates["github_commit_url"] = *commitURL
	}
	if err := s.db.Model(bug).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.activity.Record(nil, bug.ProjectID, userID, models.ActivityBugResolved,
		fmt.Sprintf("%s resolved bug: %s", userName(s.db, userID), bug.Title), &bug.ID)

	return bug, nil
}

// Close closes the bug. Allowed for the bug's reporter and for the project
// creator. Closing an already CLOSED bug simply refreshes the close metadata.
func (s *BugService) Close(bugID, userID string) (*models.Bug, error) {
	bug, err := s.findBug(bugID)
	if err != nil {
		return nil, err
	}

	actor, err := membershipOf(s.db, bug.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanCloseBug(bug, actor, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(bug).Updates(map[string]interface{}{
		"status":    models.BugStatusClosed,
		"closed_at": now,
		"closed_by": userID,
	}).Error; err != nil {
		return nil, err
	}

	s.activity.Record(nil, bug.ProjectID, userID, models.ActivityBugClosed,
		fmt.Sprintf("%s closed bug: %s", userName(s.db, userID), bug.Title), &bug.ID)

	return bug, nil
}

// Delete removes a bug with its assignment history and activity rows.
// Creator only.
func (s *BugService) Delete(bugID, userID string) error {
	bug, err := s.findBug(bugID)
	if err != nil {
		return err
	}

	actor, err := membershipOf(s.db, bug.ProjectID, userID)
	if err != nil {
		return err
	}
	if err := policy.RequireCreator(actor); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bug_id = ?", bug.ID).Delete(&models.BugAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bug_id = ?", bug.ID).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		return tx.Delete(bug).Error
	})
}
