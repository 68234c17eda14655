package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crams-api/internal/models"
	"github.com/noah-isme/crams-api/pkg/response"
)

type advisorService interface {
	Assign(ctx context.Context, req models.AssignAdvisorRequest) (*models.AdvisorAssignment, error)
	List(ctx context.Context) ([]models.AdvisorAssignmentDetail, error)
	Unassign(ctx context.Context, id string) error
	Students(ctx context.Context, actor models.Actor) ([]models.AdvisedStudent, error)
	StudentSelections(ctx context.Context, actor models.Actor, studentID string) ([]models.SelectionDetail, error)
	Statistics(ctx context.Context, actor models.Actor) (*models.AdvisorStatistics, error)
	AdvisorOf(ctx context.Context, studentID string) (*models.UserInfo, error)
}

// AdvisorHandler serves advisor workload views and advisor assignment management.
type AdvisorHandler struct {
	service advisorService
}

// NewAdvisorHandler constructs the handler.
func NewAdvisorHandler(svc advisorService) *AdvisorHandler {
	return &AdvisorHandler{service: svc}
}

// Students godoc
// @Summary My advised students
// @Tags Advisor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /advisor/students [get]
func (h *AdvisorHandler) Students(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.Students(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// StudentSelections godoc
// @Summary Selections of an advised student
// @Tags Advisor
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /advisor/students/{studentId}/selections [get]
func (h *AdvisorHandler) StudentSelections(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.StudentSelections(c.Request.Context(), actor, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Statistics godoc
// @Summary Review statistics
// @Tags Advisor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /advisor/statistics [get]
func (h *AdvisorHandler) Statistics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// MyAdvisor godoc
// @Summary My advisor
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/advisor [get]
func (h *AdvisorHandler) MyAdvisor(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	info, err := h.service.AdvisorOf(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Assign godoc
// @Summary Assign an advisor to a student
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.AssignAdvisorRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/assign-advisor [post]
func (h *AdvisorHandler) Assign(c *gin.Context) {
	var req models.AssignAdvisorRequest
	if !bindJSON(c, &req, "student_id and advisor_id are required") {
		return
	}
	assignment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Assignments godoc
// @Summary List advisor assignments
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/advisor-assignments [get]
func (h *AdvisorHandler) Assignments(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Unassign godoc
// @Summary Remove an advisor assignment
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/advisor-assignments/{id} [delete]
func (h *AdvisorHandler) Unassign(c *gin.Context) {
	if err := h.service.Unassign(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
