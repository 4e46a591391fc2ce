package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity event types. Closed set; presentation concerns (icons, colors)
// live entirely in clients.
const (
	ActivityProjectCreated     = "PROJECT_CREATED"
	ActivityProjectUpdated     = "PROJECT_UPDATED"
	ActivityProjectDeleted     = "PROJECT_DELETED"
	ActivityMemberAdded        = "MEMBER_ADDED"
	ActivityMemberRemoved      = "MEMBER_REMOVED"
	ActivityBugReported        = "BUG_REPORTED"
	ActivityBugUpdated         = "BUG_UPDATED"
	ActivityBugAssigned        = "BUG_ASSIGNED"
	ActivityBugSelfAssigned    = "BUG_SELF_ASSIGNED"
	ActivityAssignmentAccepted = "BUG_ASSIGNMENT_ACCEPTED"
	ActivityAssignmentRejected = "BUG_ASSIGNMENT_REJECTED"
	ActivityBugStatusChanged   = "BUG_STATUS_CHANGED"
	ActivityBugResolved        = "BUG_RESOLVED"
	ActivityBugClosed          = "BUG_CLOSED"
	ActivityJoinedAsTester     = "USER_JOINED_AS_TESTER"
)

// Activity is an append-only audit record. Rows are never mutated and only
// disappear when their project or bug is deleted.
type Activity struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string    `gorm:"type:uuid;index:idx_activity_project;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	BugID     *string   `gorm:"type:uuid" json:"bug_id"`
	Bug       *Bug      `gorm:"foreignKey:BugID" json:"bug,omitempty"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Message   string    `gorm:"size:500;not null" json:"message"`
	CreatedAt time.Time `gorm:"index:idx_activity_project" json:"created_at"`
}

func (Activity) TableName() string { return "activities" }

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
