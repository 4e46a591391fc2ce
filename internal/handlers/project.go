package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/middleware"
	"github.com/ladybug-tracker/backend/internal/services"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	activity := services.NewActivityService(db)
	return &ProjectHandler{
		projectService: services.NewProjectService(db, activity),
	}
}

// List returns all projects visible to the caller. Works for anonymous
// callers too, who see only public projects.
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

// Get returns one project with members and bug statistics.
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	detail, err := h.projectService.Get(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// Create makes a new project owned by the caller.
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update edits project settings.
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Delete removes the project and everything under it.
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projectService.Delete(c.Param("id"), middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "project deleted"})
}

// AddMember adds a user to the project by email.
// POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	membership, err := h.projectService.AddMember(c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, membership)
}

// RemoveMember removes a membership.
// DELETE /api/projects/:id/members/:memberId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	err := h.projectService.RemoveMember(c.Param("id"), middleware.GetUserID(c), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "member removed"})
}

// Join adds the caller to a public project as a tester.
// POST /api/projects/:id/join
func (h *ProjectHandler) Join(c *gin.Context) {
	membership, err := h.projectService.JoinAsTester(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, membership)
}

// Dashboard returns project aggregates for members.
// GET /api/projects/:id/dashboard
func (h *ProjectHandler) Dashboard(c *gin.Context) {
	stats, err := h.projectService.Dashboard(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
