package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/middleware"
	"github.com/ladybug-tracker/backend/internal/services"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type AssignmentHandler struct {
	assignmentService *services.AssignmentService
}

func NewAssignmentHandler(db *gorm.DB) *AssignmentHandler {
	activity := services.NewActivityService(db)
	return &AssignmentHandler{
		assignmentService: services.NewAssignmentService(db, activity),
	}
}

// Accept confirms a pending assignment offer.
// POST /api/assignments/:id/accept
func (h *AssignmentHandler) Accept(c *gin.Context) {
	assignment, err := h.assignmentService.Accept(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, assignment)
}

// Reject declines a pending offer. A reason between 10 and 500 characters is
// required.
// POST /api/assignments/:id/reject
func (h *AssignmentHandler) Reject(c *gin.Context) {
	var req services.RejectAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "a rejection reason of 10 to 500 characters is required")
		return
	}

	assignment, err := h.assignmentService.Reject(c.Param("id"), middleware.GetUserID(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, assignment)
}

// ListMine returns the caller's assignments, optionally filtered by status.
// GET /api/assignments/my?status=
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	assignments, err := h.assignmentService.ListMine(middleware.GetUserID(c), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, assignments)
}

// ListPending returns the caller's open offers.
// GET /api/assignments/pending
func (h *AssignmentHandler) ListPending(c *gin.Context) {
	assignments, err := h.assignmentService.ListPending(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, assignments)
}

// History returns every assignment made on a bug.
// GET /api/bugs/:id/assignments
func (h *AssignmentHandler) History(c *gin.Context) {
	assignments, err := h.assignmentService.History(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, assignments)
}
