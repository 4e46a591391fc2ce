package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/middleware"
	"github.com/ladybug-tracker/backend/internal/services"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type BugHandler struct {
	bugService *services.BugService
}

func NewBugHandler(db *gorm.DB) *BugHandler {
	activity := services.NewActivityService(db)
	return &BugHandler{
		bugService: services.NewBugService(db, activity),
	}
}

type assignRequest struct {
	MemberID string `json:"member_id" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type resolveRequest struct {
	GithubCommitURL *string `json:"github_commit_url"`
}

// List returns bugs visible to the caller, optionally filtered.
// GET /api/bugs?project_id=&status=&severity=
func (h *BugHandler) List(c *gin.Context) {
	var req services.BugListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bugs, err := h.bugService.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bugs)
}

// Get returns one bug with the caller's membership attached.
// GET /api/bugs/:id
func (h *BugHandler) Get(c *gin.Context) {
	detail, err := h.bugService.Get(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// Create reports a new bug.
// POST /api/bugs
func (h *BugHandler) Create(c *gin.Context) {
	var req services.CreateBugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bug, err := h.bugService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bug)
}

// Update edits bug fields. Assignee only.
// PUT /api/bugs/:id
func (h *BugHandler) Update(c *gin.Context) {
	var req services.UpdateBugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bug, err := h.bugService.Update(c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bug)
}

// Assign offers the bug to another manager.
// POST /api/bugs/:id/assign
func (h *BugHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.bugService.AssignToMember(c.Param("id"), middleware.GetUserID(c), req.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// SelfAssign lets a manager take the bug directly.
// POST /api/bugs/:id/self-assign
func (h *BugHandler) SelfAssign(c *gin.Context) {
	bug, err := h.bugService.SelfAssign(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bug)
}

// UpdateStatus moves the bug to another status.
// PUT /api/bugs/:id/status
func (h *BugHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bug, err := h.bugService.UpdateStatus(c.Param("id"), middleware.GetUserID(c), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bug)
}

// Resolve marks the bug resolved, optionally linking the fixing commit.
// POST /api/bugs/:id/resolve
func (h *BugHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	// Body is optional; resolve without a commit link is fine.
	_ = c.ShouldBindJSON(&req)

	bug, err := h.bugService.Resolve(c.Param("id"), middleware.GetUserID(c), req.GithubCommitURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bug)
}

// Close closes the bug. Reporter or project creator.
// POST /api/bugs/:id/close
func (h *BugHandler) Close(c *gin.Context) {
	bug, err := h.bugService.Close(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bug)
}

// Delete removes the bug and its assignment history. Creator only.
// DELETE /api/bugs/:id
func (h *BugHandler) Delete(c *gin.Context) {
	if err := h.bugService.Delete(c.Param("id"), middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "bug deleted"})
}
