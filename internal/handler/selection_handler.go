package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crams-api/internal/models"
	"github.com/noah-isme/crams-api/pkg/response"
)

type selectionLedger interface {
	CreateSelection(ctx context.Context, actor models.Actor, req models.CreateSelectionRequest) (*models.Selection, error)
	RemoveSelection(ctx context.Context, actor models.Actor, selectionID string) error
	UpdatePriority(ctx context.Context, actor models.Actor, selectionID string, req models.UpdatePriorityRequest) (*models.Selection, error)
	Review(ctx context.Context, actor models.Actor, selectionID string, req models.ReviewSelectionRequest) (*models.Selection, error)
	BulkReview(ctx context.Context, actor models.Actor, req models.BulkReviewRequest) (*models.BulkReviewResult, error)
}

type selectionQueries interface {
	ListForStudent(ctx context.Context, studentID string, status string) ([]models.SelectionDetail, error)
	Schedule(ctx context.Context, studentID string) ([]models.SelectionDetail, error)
	Pending(ctx context.Context, actor models.Actor) ([]models.SelectionDetail, error)
}

// SelectionHandler exposes selection writes (through the ledger) and student/advisor listings.
type SelectionHandler struct {
	ledger  selectionLedger
	queries selectionQueries
}

// NewSelectionHandler constructs the handler.
func NewSelectionHandler(ledger selectionLedger, queries selectionQueries) *SelectionHandler {
	return &SelectionHandler{ledger: ledger, queries: queries}
}

// Create godoc
// @Summary Select a course
// @Description Records a pending selection. Full courses are accepted and wait for seats.
// @Tags Selections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateSelectionRequest true "Selection"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /selections [post]
func (h *SelectionHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateSelectionRequest
	if !bindJSON(c, &req, "invalid selection payload") {
		return
	}
	sel, err := h.ledger.CreateSelection(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sel)
}

// Remove godoc
// @Summary Withdraw a pending selection
// @Tags Selections
// @Security BearerAuth
// @Param id path string true "Selection ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /selections/{id} [delete]
func (h *SelectionHandler) Remove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.ledger.RemoveSelection(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdatePriority godoc
// @Summary Change selection priority
// @Tags Selections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Selection ID"
// @Param payload body models.UpdatePriorityRequest true "Priority"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /selections/{id}/priority [put]
func (h *SelectionHandler) UpdatePriority(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdatePriorityRequest
	if !bindJSON(c, &req, "invalid priority payload") {
		return
	}
	sel, err := h.ledger.UpdatePriority(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sel, nil)
}

// Review godoc
// @Summary Review a selection
// @Description Approve or reject a pending selection. Approval takes a seat.
// @Tags Advisor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Selection ID"
// @Param payload body models.ReviewSelectionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /selections/{id}/review [put]
func (h *SelectionHandler) Review(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ReviewSelectionRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	sel, err := h.ledger.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sel, nil)
}

// BulkReview godoc
// @Summary Review several selections
// @Description Applies one decision in order. Business rejections are skipped and reported.
// @Tags Advisor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.BulkReviewRequest true "Selections and decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /selections/bulk-review [put]
func (h *SelectionHandler) BulkReview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.BulkReviewRequest
	if !bindJSON(c, &req, "invalid bulk review payload") {
		return
	}
	result, err := h.ledger.BulkReview(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MySelections godoc
// @Summary List my selections
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved, rejected or waitlisted"
// @Success 200 {object} response.Envelope
// @Router /student/selections [get]
func (h *SelectionHandler) MySelections(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.queries.ListForStudent(c.Request.Context(), actor.UserID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Schedule godoc
// @Summary My approved courses
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/schedule [get]
func (h *SelectionHandler) Schedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.queries.Schedule(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Pending godoc
// @Summary Pending selections
// @Description Oldest first. Advisors see their assigned students only.
// @Tags Advisor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /advisor/pending-selections [get]
func (h *SelectionHandler) Pending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.queries.Pending(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
