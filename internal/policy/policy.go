// Package policy contains the authorization rules for projects, bugs and
// assignments as pure predicate functions. Callers load the relevant rows
// (membership, bug with its parties, project) and pass them in; the package
// never touches the database and never logs. Every denial is returned as a
// *response.AppError so the taxonomy survives to the HTTP boundary.
package policy

import (
	"fmt"

	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/pkg/response"
)

// RequireMember denies when the actor holds no membership in the project.
func RequireMember(m *models.ProjectMember) error {
	if m == nil {
		return response.NewForbidden("access denied: you are not a member of this project")
	}
	return nil
}

// RequireCreator denies unless the actor's membership carries the creator flag.
func RequireCreator(m *models.ProjectMember) error {
	if err := RequireMember(m); err != nil {
		return err
	}
	if !m.IsCreator {
		return response.NewForbidden("access denied: only the project creator can perform this action")
	}
	return nil
}

// RequireManager denies unless the actor's membership has the Manager role.
func RequireManager(m *models.ProjectMember) error {
	if err := RequireMember(m); err != nil {
		return err
	}
	if m.Role != models.RoleManager {
		return response.NewForbidden("access denied: only managers (MP) can perform this action")
	}
	return nil
}

// CanAssignToOthers gates proposing an assignment to another member. Being a
// Manager is necessary but not sufficient: only the creator may hand bugs to
// other people.
func CanAssignToOthers(m *models.ProjectMember) error {
	if err := RequireManager(m); err != nil {
		return err
	}
	if !m.IsCreator {
		return response.NewForbidden("access denied: only the project creator can assign bugs to others")
	}
	return nil
}

// CanSelfAssign gates a manager taking an unassigned bug for themselves.
// Closed bugs stay closed; they never re-enter the assignment flow.
func CanSelfAssign(bug *models.Bug, m *models.ProjectMember) error {
	if bug.Status == models.BugStatusClosed {
		return response.NewBadRequest("closed bugs cannot be self-assigned")
	}
	if bug.AssigneeID != nil {
		return response.NewBadRequest("bug is already assigned; only unassigned bugs can be self-assigned")
	}
	return RequireManager(m)
}

// ValidateAssignee checks that the proposed assignee can hold the bug: same
// project and Manager role. A Tester can never hold an assignment.
func ValidateAssignee(bug *models.Bug, target *models.ProjectMember) error {
	if target == nil || target.ProjectID != bug.ProjectID {
		return response.NewBadRequest("assignee is not a member of this project")
	}
	if target.Role != models.RoleManager {
		return response.NewBadRequest("only managers (MP) can be assigned bugs")
	}
	return nil
}

// CanModifyBug allows field and status updates only for the bug's current
// assignee. The check resolves the assignee membership to its underlying
// user; membership ids are never compared against user ids.
// bug.Assignee must be hydrated when AssigneeID is set.
func CanModifyBug(bug *models.Bug, actorUserID string) error {
	if bug.AssigneeID == nil || bug.Assignee == nil || bug.Assignee.UserID != actorUserID {
		return response.NewForbidden("access denied: only the assigned member can update this bug")
	}
	return nil
}

// CanCloseBug allows closing by the bug's reporter or by the project creator.
// bug.Reporter must be hydrated; actor is the caller's membership in the
// bug's project (nil when not a member).
func CanCloseBug(bug *models.Bug, actor *models.ProjectMember, actorUserID string) error {
	if bug.Reporter != nil && bug.Reporter.UserID == actorUserID {
		return nil
	}
	if actor != nil && actor.IsCreator {
		return nil
	}
	return response.NewForbidden("access denied: only the reporter or the project creator can close this bug")
}

// CanDeleteProject requires the actor to literally be the project's creator.
func CanDeleteProject(p *models.Project, actorUserID string) error {
	if p.CreatorID != actorUserID {
		return response.NewForbidden("access denied: only the project creator can delete the project")
	}
	return nil
}

// CanViewProject allows reads of a project (and its bugs) for members always,
// and for everyone else only when the project is public.
func CanViewProject(p *models.Project, m *models.ProjectMember) error {
	if p.IsPublic {
		return nil
	}
	return RequireMember(m)
}

// CanJoinAsTester allows free joining of public projects only.
func CanJoinAsTester(p *models.Project) error {
	if !p.IsPublic {
		return response.NewForbidden("cannot join a private project; contact the project creator")
	}
	return nil
}

// CanRespondToAssignment gates accept/reject of an assignment offer: only the
// designated assignee's user may respond, and only while the row is PENDING.
// a.Assignee must be hydrated.
func CanRespondToAssignment(a *models.BugAssignment, actorUserID string) error {
	if a.Assignee == nil || a.Assignee.UserID != actorUserID {
		return response.NewForbidden("you can only respond to assignments addressed to you")
	}
	if a.Status != models.AssignmentPending {
		return response.NewBadRequest(fmt.Sprintf("cannot respond to assignment with status %s", a.Status))
	}
	return nil
}

// VisibleBugs filters a fetched bug list down to what the given user may see:
// bugs of public projects plus bugs of projects the user belongs to. It is a
// post-fetch filter over the whole list, mirroring the list semantics rather
// than a per-lookup precondition. Each bug's Project.Members must be hydrated.
func VisibleBugs(bugs []models.Bug, userID string) []models.Bug {
	visible := make([]models.Bug, 0, len(bugs))
	for _, bug := range bugs {
		if bug.Project == nil {
			continue
		}
		if bug.Project.IsPublic || isMemberOf(bug.Project.Members, userID) {
			visible = append(visible, bug)
		}
	}
	return visible
}

func isMemberOf(members []models.ProjectMember, userID string) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
