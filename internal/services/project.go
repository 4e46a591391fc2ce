package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/internal/policy"
	"github.com/ladybug-tracker/backend/pkg/logger"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type ProjectService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewProjectService(db *gorm.DB, activity *ActivityService) *ProjectService {
	return &ProjectService{db: db, activity: activity}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=200"`
	Description string `json:"description"`
	RepoURL     string `json:"repo_url"`
	IsPublic    *bool  `json:"is_public"`
}

type UpdateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	RepoURL     *string `json:"repo_url"`
	IsPublic    *bool   `json:"is_public"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// ProjectDetail is the single-project response: the project with members, a
// per-status bug breakdown, and the caller's own membership (nil when the
// caller only sees the project because it is public).
type ProjectDetail struct {
	Project    *models.Project       `json:"project"`
	BugStats   map[string]int64      `json:"bug_stats"`
	Membership *models.ProjectMember `json:"membership"`
}

// membershipOf loads the user's membership in a project. A missing membership
// is not an error; it returns (nil, nil) so policy checks can decide.
func membershipOf(db *gorm.DB, projectID, userID string) (*models.ProjectMember, error) {
	if userID == "" {
		return nil, nil
	}
	var m models.ProjectMember
	err := db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func userName(db *gorm.DB, userID string) string {
	var user models.User
	if err := db.Select("name").First(&user, "id = ?", userID).Error; err != nil {
		return "someone"
	}
	return user.Name
}

// Create makes a new project and its creator membership atomically. The
// creator always joins as a Manager with the creator flag set.
func (s *ProjectService) Create(userID string, req *CreateProjectRequest) (*models.Project, error) {
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	project := models.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		RepoURL:     req.RepoURL,
		IsPublic:    isPublic,
		CreatorID:   userID,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		membership := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    userID,
			Role:      models.RoleManager,
			IsCreator: true,
		}
		return tx.Create(&membership).Error
	}); err != nil {
		return nil, err
	}

	s.activity.Record(nil, project.ID, userID, models.ActivityProjectCreated,
		fmt.Sprintf("%s created the project", userName(s.db, userID)), nil)

	return &project, nil
}

// List returns every project visible to the user: all public projects plus
// the private ones the user belongs to. An empty userID (anonymous caller)
// yields public projects only.
func (s *ProjectService) List(userID string) ([]models.Project, error) {
	query := s.db.Preload("Creator").Preload("Members").Preload("Members.User")

	if userID == "" {
		query = query.Where("is_public = ?", true)
	} else {
		memberOf := s.db.Model(&models.ProjectMember{}).
			Select("project_id").
			Where("user_id = ?", userID)
		query = query.Where("is_public = ? OR id IN (?)", true, memberOf)
	}

	var projects []models.Project
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Get returns one project with members and bug statistics. Private projects
// are visible to members only.
func (s *ProjectService) Get(projectID, userID string) (*ProjectDetail, error) {
	var project models.Project
	if err := s.db.Preload("Creator").Preload("Members").Preload("Members.User").
		First(&project, "id = ?", projectID).Error; err != nil {
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

	stats, err := s.bugStatusStats(projectID)
	if err != nil {
		return nil, err
	}

	return &ProjectDetail{Project: &project, BugStats: stats, Membership: membership}, nil
}

// Update changes project fields. Creator only.
func (s *ProjectService) Update(projectID, userID string, req *UpdateProjectRequest) (*models.Project, error) {
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
	if err := policy.RequireCreator(membership); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = strings.TrimSpace(req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.RepoURL != nil {
		updates["repo_url"] = *req.RepoURL
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}

	if len(updates) > 0 {
		if err := s.db.Model(&project).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.activity.Record(nil, project.ID, userID, models.ActivityProjectUpdated,
			fmt.Sprintf("%s updated the project settings", userName(s.db, userID)), nil)
	}

	return &project, nil
}

// Delete removes the project and everything under it: memberships, bugs,
// assignments and activities, in one transaction. Creator only.
func (s *ProjectService) Delete(projectID, userID string) error {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("project not found")
		}
		return err
	}

	if err := policy.CanDeleteProject(&project, userID); err != nil {
		return err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		bugIDs := tx.Model(&models.Bug{}).Select("id").Where("project_id = ?", projectID)
		if err := tx.Where("bug_id IN (?)", bugIDs).Delete(&models.BugAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Bug{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&project).Error
	}); err != nil {
		return err
	}

	logger.Info().
		Str("project_id", projectID).
		Str("deleted_by", userID).
		Msg("project deleted")
	return nil
}

// AddMember adds a user to the project by email. Creator only. Adding the
// same user twice is a conflict.
func (s *ProjectService) AddMember(projectID, actorUserID string, req *AddMemberRequest) (*models.ProjectMember, error) {
	actor, err := membershipOf(s.db, projectID, actorUserID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireCreator(actor); err != nil {
		return nil, err
	}

	if !models.ValidRole(req.Role) {
		return nil, response.NewBadRequest("role must be MP or TST")
	}

	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("no user found with this email")
		}
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, user.ID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("user is already a member of this project")
	}

	membership := models.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      req.Role,
	}
	if err := s.db.Create(&membership).Error; err != nil {
		return nil, err
	}
	membership.User = &user

	s.activity.Record(nil, projectID, actorUserID, models.ActivityMemberAdded,
		fmt.Sprintf("%s added %s as %s", userName(s.db, actorUserID), user.Name, req.Role), nil)

	return &membership, nil
}

// RemoveMember removes a membership. Creator only; the creator's own
// membership cannot be removed.
func (s *ProjectService) RemoveMember(projectID, actorUserID, memberID string) error {
	actor, err := membershipOf(s.db, projectID, actorUserID)
	if err != nil {
		return err
	}
	if err := policy.RequireCreator(actor); err != nil {
		return err
	}

	var target models.ProjectMember
	if err := s.db.Preload("User").
		Where("id = ? AND project_id = ?", memberID, projectID).
		First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("member not found in this project")
		}
		return err
	}
	if target.IsCreator {
		return response.NewBadRequest("the project creator cannot be removed")
	}

	if err := s.db.Delete(&target).Error; err != nil {
		return err
	}

	removed := "a member"
	if target.User != nil {
		removed = target.User.Name
	}
	s.activity.Record(nil, projectID, actorUserID, models.ActivityMemberRemoved,
		fmt.Sprintf("%s removed %s from the project", userName(s.db, actorUserID), removed), nil)

	return nil
}

// JoinAsTester lets any user join a public project with the Tester role.
func (s *ProjectService) JoinAsTester(projectID, userID string) (*models.ProjectMember, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	if err := policy.CanJoinAsTester(&project); err != nil {
		return nil, err
	}

	existing, err := membershipOf(s.db, projectID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, response.NewConflict("you are already a member of this project")
	}

	membership := models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      models.RoleTester,
	}
	if err := s.db.Create(&membership).Error; err != nil {
		return nil, err
	}

	s.activity.Record(nil, projectID, userID, models.ActivityJoinedAsTester,
		fmt.Sprintf("%s joined the project as a tester", userName(s.db, userID)), nil)

	return &membership, nil
}

// DashboardStats aggregates a project for its members.
type DashboardStats struct {
	Project          *models.Project   `json:"project"`
	MembersByRole    map[string]int64  `json:"members_by_role"`
	BugsByStatus     map[string]int64  `json:"bugs_by_status"`
	BugsBySeverity   map[string]int64  `json:"bugs_by_severity"`
	BugsByPriority   map[string]int64  `json:"bugs_by_priority"`
	RecentActivities []models.Activity `json:"recent_activities"`
	TopContributors  []ContributorStat `json:"top_contributors"`
}

// ContributorStat ranks a user by recorded activity within one project.
type ContributorStat struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

// Dashboard returns project aggregates. Members only, public or not.
func (s *ProjectService) Dashboard(projectID, userID string) (*DashboardStats, error) {
	var project models.Project
	if err := s.db.Preload("Creator").First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	membership, err := membershipOf(s.db, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireMember(membership); err != nil {
		return nil, err
	}

	stats := &DashboardStats{Project: &project}

	if stats.MembersByRole, err = s.groupCount(&models.ProjectMember{}, projectID, "role"); err != nil {
		return nil, err
	}
	if stats.BugsByStatus, err = s.groupCount(&models.Bug{}, projectID, "status"); err != nil {
		return nil, err
	}
	if stats.BugsBySeverity, err = s.groupCount(&models.Bug{}, projectID, "severity"); err != nil {
		return nil, err
	}
	if stats.BugsByPriority, err = s.groupCount(&models.Bug{}, projectID, "priority"); err != nil {
		return nil, err
	}

	if err := s.db.Where("project_id = ?", projectID).
		Preload("User").
		Order("created_at DESC").
		Limit(10).
		Find(&stats.RecentActivities).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Activity{}).
		Select("activities.user_id, users.name, count(*) as count").
		Joins("JOIN users ON users.id = activities.user_id").
		Where("activities.project_id = ?", projectID).
		Group("activities.user_id, users.name").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopContributors).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// MyStats aggregates the user's footprint across all projects.
type MyStats struct {
	ProjectsJoined  int64            `json:"projects_joined"`
	ProjectsCreated int64            `json:"projects_created"`
	RolesHeld       map[string]int64 `json:"roles_held"`
	BugsReported    int64            `json:"bugs_reported"`
	BugsAssigned    int64            `json:"bugs_assigned"`
	BugsResolved    int64            `json:"bugs_resolved"`
}

func (s *ProjectService) MyStats(userID string) (*MyStats, error) {
	stats := &MyStats{RolesHeld: make(map[string]int64)}

	if err := s.db.Model(&models.ProjectMember{}).
		Where("user_id = ?", userID).
		Count(&stats.ProjectsJoined).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Project{}).
		Where("creator_id = ?", userID).
		Count(&stats.ProjectsCreated).Error; err != nil {
		return nil, err
	}

	type roleRow struct {
		Role  string
		Count int64
	}
	var roles []roleRow
	if err := s.db.Model(&models.ProjectMember{}).
		Select("role, count(*) as count").
		Where("user_id = ?", userID).
		Group("role").
		Scan(&roles).Error; err != nil {
		return nil, err
	}
	for _, r := range roles {
		stats.RolesHeld[r.Role] = r.Count
	}

	memberIDs := s.db.Model(&models.ProjectMember{}).Select("id").Where("user_id = ?", userID)

	if err := s.db.Model(&models.Bug{}).
		Where("reporter_id IN (?)", memberIDs).
		Count(&stats.BugsReported).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Bug{}).
		Where("assignee_id IN (?)", memberIDs).
		Count(&stats.BugsAssigned).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Bug{}).
		Where("assignee_id IN (?) AND status IN ?", memberIDs,
			[]string{models.BugStatusResolved, models.BugStatusInTesting, models.BugStatusClosed}).
		Count(&stats.BugsResolved).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *ProjectService) bugStatusStats(projectID string) (map[string]int64, error) {
	return s.groupCount(&models.Bug{}, projectID, "status")
}

func (s *ProjectService) groupCount(model interface{}, projectID, column string) (map[string]int64, error) {
	type row struct {
		Bucket string
		Count  int64
	}
	var rows []row
	if err := s.db.Model(model).
		Select(column+" as bucket, count(*) as count").
		Where("project_id = ?", projectID).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Bucket] = r.Count
	}
	return out, nil
}
