package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership roles. Managers (MP) can hold bug assignments; Testers (TST)
// report bugs and join public projects.
const (
	RoleManager = "MP"
	RoleTester  = "TST"
)

// ValidRole reports whether role is one of the closed role set.
func ValidRole(role string) bool {
	return role == RoleManager || role == RoleTester
}

// ProjectMember binds a user to a project with a role and creator flag. It is
// the unit of authorization: bugs reference memberships, not users.
type ProjectMember struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string    `gorm:"type:uuid;uniqueIndex:idx_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:10;not null" json:"role"` // MP, TST
	IsCreator bool      `gorm:"default:false" json:"is_creator"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
