package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assignment statuses. ACCEPTED and REJECTED are terminal; a rejected row is
// kept as history and a fresh PENDING row is created for any later proposal.
const (
	AssignmentPending  = "PENDING"
	AssignmentAccepted = "ACCEPTED"
	AssignmentRejected = "REJECTED"
)

// BugAssignment records an offer of bug ownership, separate from the bug's
// own assignee field. At most one PENDING row may exist per bug; the bug must
// be unassigned before a new one is created.
type BugAssignment struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	BugID           string         `gorm:"type:uuid;index;not null" json:"bug_id"`
	Bug             *Bug           `gorm:"foreignKey:BugID" json:"bug,omitempty"`
	AssignedTo      string         `gorm:"type:uuid;index:idx_assignee_status;not null" json:"assigned_to"`
	Assignee        *ProjectMember `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	AssignedBy      string         `gorm:"type:uuid;not null" json:"assigned_by"`
	Assigner        *ProjectMember `gorm:"foreignKey:AssignedBy" json:"assigner,omitempty"`
	Status          string         `gorm:"size:20;index:idx_assignee_status;default:PENDING;not null" json:"status"`
	RejectionReason string         `gorm:"size:500" json:"rejection_reason,omitempty"`
	AssignedAt      time.Time      `gorm:"autoCreateTime" json:"assigned_at"`
	RespondedAt     *time.Time     `json:"responded_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (BugAssignment) TableName() string { return "bug_assignments" }

func (a *BugAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
