package services

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/pkg/response"
)

// setupTestDB opens a per-test in-memory sqlite database. The DSN is keyed by
// the test name so parallel tests never share state.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Bug{},
		&models.BugAssignment{},
		&models.Activity{},
		&models.RefreshToken{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return &user
}

// createProject makes a project plus its creator membership, the same shape
// ProjectService.Create produces.
func createProject(t *testing.T, db *gorm.DB, creator *models.User, name string, isPublic bool) *models.Project {
	t.Helper()
	project := models.Project{Name: name, IsPublic: isPublic, CreatorID: creator.ID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	membership := models.ProjectMember{
		ProjectID: project.ID,
		UserID:    creator.ID,
		Role:      models.RoleManager,
		IsCreator: true,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("create creator membership: %v", err)
	}
	return &project
}

func addMember(t *testing.T, db *gorm.DB, project *models.Project, user *models.User, role string) *models.ProjectMember {
	t.Helper()
	membership := models.ProjectMember{ProjectID: project.ID, UserID: user.ID, Role: role}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("add member %s: %v", user.Email, err)
	}
	return &membership
}

func assertAppError(t *testing.T, err error, httpStatus int) *response.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error with HTTP %d, got nil", httpStatus)
	}
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *response.AppError, got %T (%v)", err, err)
	}
	if appErr.HTTPStatus != httpStatus {
		t.Fatalf("expected HTTP %d, got %d (%s)", httpStatus, appErr.HTTPStatus, appErr.Message)
	}
	return appErr
}

func countActivities(t *testing.T, db *gorm.DB, projectID, activityType string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Activity{}).
		Where("project_id = ? AND type = ?", projectID, activityType).
		Count(&n).Error; err != nil {
		t.Fatalf("count activities: %v", err)
	}
	return n
}
