package policy

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/pkg/response"
)

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if status == 0 {
		if err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		return
	}
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *response.AppError, got %T (%v)", err, err)
	}
	if appErr.HTTPStatus != status {
		t.Fatalf("expected HTTP %d, got %d (%s)", status, appErr.HTTPStatus, appErr.Message)
	}
}

func member(role string, creator bool) *models.ProjectMember {
	return &models.ProjectMember{ID: "m1", ProjectID: "p1", UserID: "u1", Role: role, IsCreator: creator}
}

func TestRoleGuards(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*models.ProjectMember) error
		m      *models.ProjectMember
		status int
	}{
		{"member nil", RequireMember, nil, http.StatusForbidden},
		{"member ok", RequireMember, member(models.RoleTester, false), 0},
		{"creator nil", RequireCreator, nil, http.StatusForbidden},
		{"creator non-creator", RequireCreator, member(models.RoleManager, false), http.StatusForbidden},
		{"creator ok", RequireCreator, member(models.RoleManager, true), 0},
		{"manager nil", RequireManager, nil, http.StatusForbidden},
		{"manager tester", RequireManager, member(models.RoleTester, false), http.StatusForbidden},
		{"manager ok", RequireManager, member(models.RoleManager, false), 0},
		{"assign-others non-creator manager", CanAssignToOthers, member(models.RoleManager, false), http.StatusForbidden},
		{"assign-others creator tester", CanAssignToOthers, member(models.RoleTester, true), http.StatusForbidden},
		{"assign-others creator manager", CanAssignToOthers, member(models.RoleManager, true), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantStatus(t, tt.check(tt.m), tt.status)
		})
	}
}

func TestCanSelfAssign(t *testing.T) {
	assignee := "m9"
	taken := &models.Bug{ID: "b1", ProjectID: "p1", AssigneeID: &assignee}
	free := &models.Bug{ID: "b2", ProjectID: "p1"}
	closed := &models.Bug{ID: "b3", ProjectID: "p1", Status: models.BugStatusClosed}

	wantStatus(t, CanSelfAssign(taken, member(models.RoleManager, true)), http.StatusBadRequest)
	wantStatus(t, CanSelfAssign(closed, member(models.RoleManager, true)), http.StatusBadRequest)
	wantStatus(t, CanSelfAssign(free, member(models.RoleTester, false)), http.StatusForbidden)
	wantStatus(t, CanSelfAssign(free, member(models.RoleManager, false)), 0)
}

func TestValidateAssignee(t *testing.T) {
	bug := &models.Bug{ID: "b1", ProjectID: "p1"}

	tests := []struct {
		name   string
		target *models.ProjectMember
		status int
	}{
		{"nil target", nil, http.StatusBadRequest},
		{"other project", &models.ProjectMember{ProjectID: "p2", Role: models.RoleManager}, http.StatusBadRequest},
		{"tester", &models.ProjectMember{ProjectID: "p1", Role: models.RoleTester}, http.StatusBadRequest},
		{"manager same project", &models.ProjectMember{ProjectID: "p1", Role: models.RoleManager}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantStatus(t, ValidateAssignee(bug, tt.target), tt.status)
		})
	}
}

func TestCanModifyBug(t *testing.T) {
	assigneeMember := &models.ProjectMember{ID: "m1", ProjectID: "p1", UserID: "u-assignee", Role: models.RoleManager}
	id := assigneeMember.ID
	assigned := &models.Bug{ID: "b1", AssigneeID: &id, Assignee: assigneeMember}
	unassigned := &models.Bug{ID: "b2"}

	wantStatus(t, CanModifyBug(unassigned, "u-assignee"), http.StatusForbidden)
	wantStatus(t, CanModifyBug(assigned, "u-other"), http.StatusForbidden)
	// A user id equal to the membership id must not slip through.
	wantStatus(t, CanModifyBug(assigned, "m1"), http.StatusForbidden)
	wantStatus(t, CanModifyBug(assigned, "u-assignee"), 0)
}

func TestCanCloseBug(t *testing.T) {
	reporter := &models.ProjectMember{ID: "m-rep", ProjectID: "p1", UserID: "u-rep", Role: models.RoleTester}
	bug := &models.Bug{ID: "b1", ProjectID: "p1", ReporterID: reporter.ID, Reporter: reporter}

	wantStatus(t, CanCloseBug(bug, nil, "u-rep"), 0)
	wantStatus(t, CanCloseBug(bug, member(models.RoleManager, true), "u1"), 0)
	wantStatus(t, CanCloseBug(bug, member(models.RoleManager, false), "u1"), http.StatusForbidden)
	wantStatus(t, CanCloseBug(bug, nil, "u-other"), http.StatusForbidden)
}

func TestProjectGuards(t *testing.T) {
	private := &models.Project{ID: "p1", CreatorID: "u-creator", IsPublic: false}
	public := &models.Project{ID: "p2", CreatorID: "u-creator", IsPublic: true}

	wantStatus(t, CanDeleteProject(private, "u-creator"), 0)
	wantStatus(t, CanDeleteProject(private, "u-other"), http.StatusForbidden)

	wantStatus(t, CanViewProject(public, nil), 0)
	wantStatus(t, CanViewProject(private, nil), http.StatusForbidden)
	wantStatus(t, CanViewProject(private, member(models.RoleTester, false)), 0)

	wantStatus(t, CanJoinAsTester(public), 0)
	wantStatus(t, CanJoinAsTester(private), http.StatusForbidden)
}

func TestCanRespondToAssignment(t *testing.T) {
	assignee := &models.ProjectMember{ID: "m1", ProjectID: "p1", UserID: "u-assignee"}
	pending := &models.BugAssignment{ID: "a1", Status: models.AssignmentPending, Assignee: assignee}
	rejected := &models.BugAssignment{ID: "a2", Status: models.AssignmentRejected, Assignee: assignee}

	wantStatus(t, CanRespondToAssignment(pending, "u-other"), http.StatusForbidden)
	wantStatus(t, CanRespondToAssignment(pending, "u-assignee"), 0)

	err := CanRespondToAssignment(rejected, "u-assignee")
	wantStatus(t, err, http.StatusBadRequest)
	if !strings.Contains(err.Error(), models.AssignmentRejected) {
		t.Fatalf("error should name the current status, got %q", err.Error())
	}
}

func TestVisibleBugs(t *testing.T) {
	publicProject := &models.Project{ID: "p-pub", IsPublic: true}
	privateMine := &models.Project{ID: "p-mine", IsPublic: false, Members: []models.ProjectMember{
		{ID: "m1", ProjectID: "p-mine", UserID: "u1"},
	}}
	privateOther := &models.Project{ID: "p-other", IsPublic: false, Members: []models.ProjectMember{
		{ID: "m2", ProjectID: "p-other", UserID: "u2"},
	}}

	bugs := []models.Bug{
		{ID: "b1", ProjectID: publicProject.ID, Project: publicProject},
		{ID: "b2", ProjectID: privateMine.ID, Project: privateMine},
		{ID: "b3", ProjectID: privateOther.ID, Project: privateOther},
	}

	visible := VisibleBugs(bugs, "u1")
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible bugs, got %d", len(visible))
	}
	for _, b := range visible {
		if b.ID == "b3" {
			t.Fatal("bug of a foreign private project leaked into the visible set")
		}
	}
}
