package services

import (
	"net/http"
	"strings"
	"testing"

	"github.com/ladybug-tracker/backend/internal/models"
)

func setupAssignmentFixture(t *testing.T) (*BugService, *AssignmentService, *assignmentFixture) {
	t.Helper()
	db := setupTestDB(t)
	activity := NewActivityService(db)
	bugs := NewBugService(db, activity)
	assignments := NewAssignmentService(db, activity)

	creator := createUser(t, db, "Ana", "ana@example.com")
	manager := createUser(t, db, "Max", "max@example.com")
	project := createProject(t, db, creator, "proj", true)
	managerMembership := addMember(t, db, project, manager, models.RoleManager)

	bug, err := bugs.Create(creator.ID, &CreateBugRequest{
		ProjectID: project.ID, Title: "bug", Description: "d",
		Severity: models.SeverityMedium, Priority: models.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("create bug: %v", err)
	}
	offer, err := bugs.AssignToMember(bug.ID, creator.ID, managerMembership.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	return bugs, assignments, &assignmentFixture{
		creator: creator, manager: manager,
		project: project, bug: bug, offer: offer,
	}
}

type assignmentFixture struct {
	creator *models.User
	manager *models.User
	project *models.Project
	bug     *models.Bug
	offer   *models.BugAssignment
}

func TestAccept_OnlyAssignee(t *testing.T) {
	_, assignments, fx := setupAssignmentFixture(t)

	// The assigning creator cannot accept on the assignee's behalf.
	_, err := assignments.Accept(fx.offer.ID, fx.creator.ID)
	assertAppError(t, err, http.StatusForbidden)

	accepted, err := assignments.Accept(fx.offer.ID, fx.manager.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.AssignmentAccepted {
		t.Fatalf("status = %s, expected ACCEPTED", accepted.Status)
	}
}

func TestRespond_Twice(t *testing.T) {
	_, assignments, fx := setupAssignmentFixture(t)

	if _, err := assignments.Accept(fx.offer.ID, fx.manager.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Any second response to the same offer names the current status.
	_, err := assignments.Accept(fx.offer.ID, fx.manager.ID)
	appErr := assertAppError(t, err, http.StatusBadRequest)
	if !strings.Contains(appErr.Message, models.AssignmentAccepted) {
		t.Fatalf("error should name the current status, got %q", appErr.Message)
	}

	_, err = assignments.Reject(fx.offer.ID, fx.manager.ID, "changed my mind about this one")
	assertAppError(t, err, http.StatusBadRequest)
}

func TestReject_KeepsHistoryAndReason(t *testing.T) {
	bugs, assignments, fx := setupAssignmentFixture(t)

	reason := "already at capacity this sprint"
	rejected, err := assignments.Reject(fx.offer.ID, fx.manager.ID, reason)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.AssignmentRejected {
		t.Fatalf("status = %s, expected REJECTED", rejected.Status)
	}

	history, err := assignments.History(fx.bug.ID, fx.creator.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d rows, expected the rejected row to survive", len(history))
	}
	if history[0].RejectionReason != reason {
		t.Fatalf("reason = %q, expected %q", history[0].RejectionReason, reason)
	}
	if history[0].RespondedAt == nil {
		t.Fatal("RespondedAt should be set on rejection")
	}

	got, err := bugs.Get(fx.bug.ID, fx.creator.ID)
	if err != nil {
		t.Fatalf("get bug: %v", err)
	}
	if got.Bug.Status != models.BugStatusReported || got.Bug.AssigneeID != nil {
		t.Fatal("rejection should return the bug to the pool unassigned")
	}
}

func TestListPending(t *testing.T) {
	_, assignments, fx := setupAssignmentFixture(t)

	pending, err := assignments.ListPending(fx.manager.ID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != fx.offer.ID {
		t.Fatalf("expected exactly the open offer, got %d rows", len(pending))
	}

	if _, err := assignments.Accept(fx.offer.ID, fx.manager.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	pending, err = assignments.ListPending(fx.manager.ID)
	if err != nil {
		t.Fatalf("list pending after accept: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("accepted offers should leave the pending list, got %d", len(pending))
	}

	// The full list still shows it, newest first.
	all, err := assignments.ListMine(fx.manager.ID, "")
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 assignment in full list, got %d", len(all))
	}
}

func TestHistory_MemberOnly(t *testing.T) {
	db := setupTestDB(t)
	activity := NewActivityService(db)
	bugs := NewBugService(db, activity)
	assignments := NewAssignmentService(db, activity)

	creator := createUser(t, db, "Ana", "ana@example.com")
	stranger := createUser(t, db, "Sam", "sam@example.com")
	project := createProject(t, db, creator, "proj", true)

	bug, err := bugs.Create(creator.ID, &CreateBugRequest{
		ProjectID: project.ID, Title: "bug", Description: "d",
		Severity: models.SeverityLow, Priority: models.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create bug: %v", err)
	}

	_, err = assignments.History(bug.ID, stranger.ID)
	assertAppError(t, err, http.StatusForbidden)
}
