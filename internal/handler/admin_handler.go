package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crams-api/internal/middleware"
	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
	"github.com/noah-isme/crams-api/pkg/export"
	"github.com/noah-isme/crams-api/pkg/response"
)

type reportService interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, bool, error)
	SeatConflicts(ctx context.Context) (*models.SeatConflictReport, bool, error)
	ScheduleStats(ctx context.Context) (*models.ScheduleStats, bool, error)
	Report(ctx context.Context, reportType models.ReportType) (interface{}, error)
	Export(ctx context.Context, reportType models.ReportType, format export.Format) (*export.File, error)
}

type conflictResolver interface {
	ResolveConflict(ctx context.Context, actor models.Actor, courseID string, req models.ResolveConflictRequest) (*models.ResolveConflictResult, error)
}

// AdminHandler serves admin dashboards, reports and seat conflict resolution.
type AdminHandler struct {
	reports  reportService
	resolver conflictResolver
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(reports reportService, resolver conflictResolver) *AdminHandler {
	return &AdminHandler{reports: reports, resolver: resolver}
}

// Dashboard godoc
// @Summary Admin dashboard
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, hit, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.Meta(c))
}

// Reports godoc
// @Summary Admin reports
// @Description JSON by default; format=csv or format=pdf downloads a file.
// @Tags Admin
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param type query string true "enrollment, advisor_activity or student_progress"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/reports [get]
func (h *AdminHandler) Reports(c *gin.Context) {
	reportType := models.ReportType(strings.TrimSpace(c.Query("type")))
	if reportType == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type is required"))
		return
	}

	if raw := c.Query("format"); raw != "" && !strings.EqualFold(raw, "json") {
		format, err := export.ParseFormat(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
			return
		}
		file, err := h.reports.Export(c.Request.Context(), reportType, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, file.Name, file.ContentType, file.Payload)
		return
	}

	rows, err := h.reports.Report(c.Request.Context(), reportType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{"type": reportType})
}

// SeatConflicts godoc
// @Summary Seat conflicts
// @Description Near-capacity courses and full courses with pending selections.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/seat-conflicts [get]
func (h *AdminHandler) SeatConflicts(c *gin.Context) {
	report, hit, err := h.reports.SeatConflicts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, report, nil, middleware.Meta(c))
}

// ScheduleStats godoc
// @Summary Schedule statistics
// @Description Busiest time slots, department seat utilization and overlapping course schedules.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/schedule-stats [get]
func (h *AdminHandler) ScheduleStats(c *gin.Context) {
	stats, hit, err := h.reports.ScheduleStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.Meta(c))
}

// ResolveConflict godoc
// @Summary Resolve a seat conflict
// @Description increase_capacity raises the capacity; manual_selection approves the listed students' pending selections.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param payload body models.ResolveConflictRequest true "Resolution"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/resolve-conflict/{courseId} [post]
func (h *AdminHandler) ResolveConflict(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ResolveConflictRequest
	if !bindJSON(c, &req, "invalid resolution payload") {
		return
	}
	result, err := h.resolver.ResolveConflict(c.Request.Context(), actor, c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
