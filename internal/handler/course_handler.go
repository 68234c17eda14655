package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crams-api/internal/middleware"
	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
	"github.com/noah-isme/crams-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseView, bool, error)
	Get(ctx context.Context, id string) (*models.CourseView, error)
	Create(ctx context.Context, req models.CreateCourseRequest) (*models.CourseView, error)
	Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.CourseView, error)
	Deactivate(ctx context.Context, id string) error
	Departments(ctx context.Context) ([]string, error)
	CheckConflicts(ctx context.Context, req models.CheckConflictsRequest) (*models.ConflictCheckResult, error)
}

type capacityService interface {
	IncreaseCapacity(ctx context.Context, courseID string, newCapacity int) (*models.CapacityResult, error)
}

// CourseHandler serves the course catalog.
type CourseHandler struct {
	courses courseService
	ledger  capacityService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(courses courseService, ledger capacityService) *CourseHandler {
	return &CourseHandler{courses: courses, ledger: ledger}
}

// List godoc
// @Summary List courses
// @Description Active courses with available seats
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param semester query string false "Semester"
// @Param year query int false "Year"
// @Param search query string false "Code, name or instructor"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Department: c.Query("department"),
		Semester:   c.Query("semester"),
		Search:     c.Query("search"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
			return
		}
		filter.Year = year
	}

	courses, hit, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, courses, nil, middleware.Meta(c))
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Description Capacity changes are reconciled against pending selections.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.UpdateCourseRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req models.UpdateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Deactivate course
// @Tags Courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Departments godoc
// @Summary List departments
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/meta/departments [get]
func (h *CourseHandler) Departments(c *gin.Context) {
	departments, err := h.courses.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// CheckConflicts godoc
// @Summary Check schedule conflicts
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CheckConflictsRequest true "Course ids"
// @Success 200 {object} response.Envelope
// @Router /courses/check-conflicts [post]
func (h *CourseHandler) CheckConflicts(c *gin.Context) {
	var req models.CheckConflictsRequest
	if !bindJSON(c, &req, "course_ids array is required") {
		return
	}
	result, err := h.courses.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateCapacity godoc
// @Summary Change course capacity
// @Description Sets the capacity and auto-approves the oldest pending selections that now fit.
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.CapacityRequest true "New capacity"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/capacity [put]
func (h *CourseHandler) UpdateCapacity(c *gin.Context) {
	var req models.CapacityRequest
	if !bindJSON(c, &req, "max_capacity is required") {
		return
	}
	result, err := h.ledger.IncreaseCapacity(c.Request.Context(), c.Param("id"), req.Capacity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
