package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project owns memberships, bugs and activities. CreatorID denormalizes the
// creator membership; the authoritative signal is the ProjectMember row with
// IsCreator set.
type Project struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	RepoURL     string    `gorm:"size:500" json:"repo_url"`
	IsPublic    bool      `gorm:"not null" json:"is_public"`
	CreatorID   string    `gorm:"type:uuid;index;not null" json:"creator_id"`
	Creator     *User     `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
