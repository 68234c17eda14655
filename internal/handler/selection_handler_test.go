package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type ledgerStub struct {
	actor      models.Actor
	created    models.CreateSelectionRequest
	removedID  string
	review     models.ReviewSelectionRequest
	bulk       models.BulkReviewRequest
	err        error
	bulkResult *models.BulkReviewResult
}

func (l *ledgerStub) CreateSelection(ctx context.Context, actor models.Actor, req models.CreateSelectionRequest) (*models.Selection, error) {
	l.actor, l.created = actor, req
	if l.err != nil {
		return nil, l.err
	}
	return &models.Selection{ID: "sel-1", StudentID: actor.UserID, CourseID: req.CourseID, Status: models.SelectionPending, Priority: 1}, nil
}

func (l *ledgerStub) RemoveSelection(ctx context.Context, actor models.Actor, selectionID string) error {
	l.actor, l.removedID = actor, selectionID
	return l.err
}

func (l *ledgerStub) UpdatePriority(ctx context.Context, actor models.Actor, selectionID string, req models.UpdatePriorityRequest) (*models.Selection, error) {
	l.actor = actor
	if l.err != nil {
		return nil, l.err
	}
	return &models.Selection{ID: selectionID, Priority: req.Priority, Status: models.SelectionPending}, nil
}

func (l *ledgerStub) Review(ctx context.Context, actor models.Actor, selectionID string, req models.ReviewSelectionRequest) (*models.Selection, error) {
	l.actor, l.review = actor, req
	if l.err != nil {
		return nil, l.err
	}
	return &models.Selection{ID: selectionID, Status: models.SelectionStatus(req.Decision)}, nil
}

func (l *ledgerStub) BulkReview(ctx context.Context, actor models.Actor, req models.BulkReviewRequest) (*models.BulkReviewResult, error) {
	l.actor, l.bulk = actor, req
	if l.err != nil {
		return nil, l.err
	}
	return l.bulkResult, nil
}

type selectionQueriesStub struct {
	status string
	actor  models.Actor
	err    error
}

func (q *selectionQueriesStub) ListForStudent(ctx context.Context, studentID string, status string) ([]models.SelectionDetail, error) {
	q.status = status
	if q.err != nil {
		return nil, q.err
	}
	return []models.SelectionDetail{{Selection: models.Selection{ID: "sel-1", StudentID: studentID}}}, nil
}

func (q *selectionQueriesStub) Schedule(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	return []models.SelectionDetail{}, nil
}

func (q *selectionQueriesStub) Pending(ctx context.Context, actor models.Actor) ([]models.SelectionDetail, error) {
	q.actor = actor
	return []models.SelectionDetail{}, nil
}

func selectionRouter(claims *models.JWTClaims, ledger *ledgerStub, queries *selectionQueriesStub) *gin.Engine {
	h := NewSelectionHandler(ledger, queries)
	r := newTestRouter(claims)
	r.POST("/selections", h.Create)
	r.DELETE("/selections/:id", h.Remove)
	r.PUT("/selections/:id/priority", h.UpdatePriority)
	r.PUT("/selections/:id/review", h.Review)
	r.PUT("/selections/bulk-review", h.BulkReview)
	r.GET("/student/selections", h.MySelections)
	r.GET("/advisor/pending-selections", h.Pending)
	return r
}

func TestSelectionHandlerCreate(t *testing.T) {
	ledger := &ledgerStub{}
	r := newTestRouter(studentClaims)
	h := NewSelectionHandler(ledger, &selectionQueriesStub{})
	r.POST("/selections", h.Create)

	rec := perform(r, http.MethodPost, "/selections", map[string]interface{}{"course_id": "c1", "priority": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "stu-1", ledger.actor.UserID)
	assert.Equal(t, models.RoleStudent, ledger.actor.Role)
	assert.Equal(t, 2, ledger.created.Priority)

	var sel models.Selection
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &sel))
	assert.Equal(t, "sel-1", sel.ID)
	assert.Equal(t, models.SelectionPending, sel.Status)
}

func TestSelectionHandlerCreateMapsLedgerErrors(t *testing.T) {
	ledger := &ledgerStub{err: appErrors.ErrDuplicateSelection}
	r := newTestRouter(studentClaims)
	r.POST("/selections", NewSelectionHandler(ledger, &selectionQueriesStub{}).Create)

	rec := perform(r, http.MethodPost, "/selections", map[string]interface{}{"course_id": "c1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_SELECTION", errorCode(t, rec))
}

func TestSelectionHandlerRejectsMalformedBody(t *testing.T) {
	ledger := &ledgerStub{}
	r := newTestRouter(studentClaims)
	r.POST("/selections", NewSelectionHandler(ledger, &selectionQueriesStub{}).Create)

	rec := perform(r, http.MethodPost, "/selections", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	assert.Empty(t, ledger.actor.UserID)
}

func TestSelectionHandlerRequiresClaims(t *testing.T) {
	r := newTestRouter(nil)
	r.POST("/selections", NewSelectionHandler(&ledgerStub{}, &selectionQueriesStub{}).Create)

	rec := perform(r, http.MethodPost, "/selections", map[string]interface{}{"course_id": "c1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSelectionHandlerRemove(t *testing.T) {
	ledger := &ledgerStub{}
	r := newTestRouter(studentClaims)
	r.DELETE("/selections/:id", NewSelectionHandler(ledger, &selectionQueriesStub{}).Remove)

	rec := perform(r, http.MethodDelete, "/selections/sel-9", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sel-9", ledger.removedID)

	ledger.err = appErrors.Clone(appErrors.ErrForbidden, "not your selection")
	rec = perform(r, http.MethodDelete, "/selections/sel-9", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSelectionHandlerReview(t *testing.T) {
	ledger := &ledgerStub{}
	r := newTestRouter(advisorClaims)
	r.PUT("/selections/:id/review", NewSelectionHandler(ledger, &selectionQueriesStub{}).Review)

	rec := perform(r, http.MethodPut, "/selections/sel-1/review", map[string]interface{}{"status": "approved", "comments": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ReviewDecision("approved"), ledger.review.Decision)
	assert.Equal(t, "ok", ledger.review.Comment)
	assert.Equal(t, "adv-1", ledger.actor.UserID)

	ledger.err = appErrors.ErrCourseFull
	rec = perform(r, http.MethodPut, "/selections/sel-1/review", map[string]interface{}{"status": "approved"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "COURSE_FULL", errorCode(t, rec))
}

func TestSelectionHandlerBulkReview(t *testing.T) {
	ledger := &ledgerStub{bulkResult: &models.BulkReviewResult{
		Requested: 2,
		Succeeded: 1,
		Skipped:   []models.SkippedSelection{{SelectionID: "s2", Code: "COURSE_FULL", Reason: "course is at maximum capacity"}},
	}}
	r := newTestRouter(adminClaims)
	r.PUT("/selections/bulk-review", NewSelectionHandler(ledger, &selectionQueriesStub{}).BulkReview)

	rec := perform(r, http.MethodPut, "/selections/bulk-review", map[string]interface{}{
		"selection_ids": []string{"s1", "s2"},
		"status":        "approved",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"s1", "s2"}, ledger.bulk.SelectionIDs)

	var result models.BulkReviewResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "COURSE_FULL", result.Skipped[0].Code)
}

func TestSelectionHandlerListings(t *testing.T) {
	queries := &selectionQueriesStub{}
	r := selectionRouter(studentClaims, &ledgerStub{}, queries)

	rec := perform(r, http.MethodGet, "/student/selections?status=waitlisted", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "waitlisted", queries.status)

	queries.err = appErrors.Clone(appErrors.ErrValidation, "invalid status")
	rec = perform(r, http.MethodGet, "/student/selections?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	r = selectionRouter(advisorClaims, &ledgerStub{}, queries)
	rec = perform(r, http.MethodGet, "/advisor/pending-selections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "adv-1", queries.actor.UserID)
}
