package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bug lifecycle statuses. REPORTED is the triage pool; CLOSED is terminal.
const (
	BugStatusReported   = "REPORTED"
	BugStatusAssigned   = "ASSIGNED"
	BugStatusInProgress = "IN_PROGRESS"
	BugStatusResolved   = "RESOLVED"
	BugStatusInTesting  = "IN_TESTING"
	BugStatusClosed     = "CLOSED"
)

// Severity levels.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
)

// Priority levels.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// ValidSeverity reports whether s is a known severity level.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ValidUpdatableStatus reports whether s is accepted by the free status
// update endpoint. REPORTED is reachable only through assignment rejection.
func ValidUpdatableStatus(s string) bool {
	switch s {
	case BugStatusAssigned, BugStatusInProgress, BugStatusResolved, BugStatusInTesting, BugStatusClosed:
		return true
	}
	return false
}

// Bug is a reported defect. Reporter and assignee reference ProjectMember
// rows, not users; resolving "who may touch this" always goes through the
// membership to its underlying user.
type Bug struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       string         `gorm:"type:uuid;index:idx_bug_project_status;not null" json:"project_id"`
	Project         *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ReporterID      string         `gorm:"type:uuid;not null" json:"reporter_id"`
	Reporter        *ProjectMember `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	AssigneeID      *string        `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee        *ProjectMember `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Title           string         `gorm:"size:300;not null" json:"title"`
	Description     string         `gorm:"type:text;not null" json:"description"`
	Severity        string         `gorm:"size:20;not null" json:"severity"`
	Priority        string         `gorm:"size:20;not null" json:"priority"`
	Status          string         `gorm:"size:20;index:idx_bug_project_status;not null" json:"status"`
	GithubCommitURL *string        `gorm:"size:500" json:"github_commit_url"`
	ResolvedAt      *time.Time     `json:"resolved_at"`
	ClosedAt        *time.Time     `json:"closed_at"`
	ClosedBy        *string        `gorm:"type:uuid" json:"closed_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Bug) TableName() string { return "bugs" }

func (b *Bug) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
