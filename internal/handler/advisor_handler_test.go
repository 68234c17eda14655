package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type advisorServiceStub struct {
	assigned  models.AssignAdvisorRequest
	studentID string
	actor     models.Actor
	err       error
}

func (s *advisorServiceStub) Assign(ctx context.Context, req models.AssignAdvisorRequest) (*models.AdvisorAssignment, error) {
	s.assigned = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.AdvisorAssignment{ID: "a1", StudentID: req.StudentID, AdvisorID: req.AdvisorID}, nil
}

func (s *advisorServiceStub) List(ctx context.Context) ([]models.AdvisorAssignmentDetail, error) {
	return []models.AdvisorAssignmentDetail{}, nil
}

func (s *advisorServiceStub) Unassign(ctx context.Context, id string) error {
	return s.err
}

func (s *advisorServiceStub) Students(ctx context.Context, actor models.Actor) ([]models.AdvisedStudent, error) {
	s.actor = actor
	return []models.AdvisedStudent{}, nil
}

func (s *advisorServiceStub) StudentSelections(ctx context.Context, actor models.Actor, studentID string) ([]models.SelectionDetail, error) {
	s.actor, s.studentID = actor, studentID
	if s.err != nil {
		return nil, s.err
	}
	return []models.SelectionDetail{}, nil
}

func (s *advisorServiceStub) Statistics(ctx context.Context, actor models.Actor) (*models.AdvisorStatistics, error) {
	return &models.AdvisorStatistics{AssignedStudents: 4}, nil
}

func (s *advisorServiceStub) AdvisorOf(ctx context.Context, studentID string) (*models.UserInfo, error) {
	s.studentID = studentID
	if s.err != nil {
		return nil, s.err
	}
	return &models.UserInfo{ID: "adv-1"}, nil
}

func TestAdvisorHandlerStudentSelections(t *testing.T) {
	svc := &advisorServiceStub{}
	r := newTestRouter(advisorClaims)
	r.GET("/advisor/students/:studentId/selections", NewAdvisorHandler(svc).StudentSelections)

	rec := perform(r, http.MethodGet, "/advisor/students/stu-7/selections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-7", svc.studentID)
	assert.Equal(t, "adv-1", svc.actor.UserID)

	svc.err = appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this student")
	rec = perform(r, http.MethodGet, "/advisor/students/stu-8/selections", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdvisorHandlerAssign(t *testing.T) {
	svc := &advisorServiceStub{}
	h := NewAdvisorHandler(svc)
	r := newTestRouter(adminClaims)
	r.POST("/admin/assign-advisor", h.Assign)
	r.DELETE("/admin/advisor-assignments/:id", h.Unassign)

	rec := perform(r, http.MethodPost, "/admin/assign-advisor", map[string]string{"student_id": "stu-1", "advisor_id": "adv-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "stu-1", svc.assigned.StudentID)

	rec = perform(r, http.MethodDelete, "/admin/advisor-assignments/a1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	svc.err = appErrors.Clone(appErrors.ErrConflict, "this advisor is already assigned to this student")
	rec = perform(r, http.MethodPost, "/admin/assign-advisor", map[string]string{"student_id": "stu-1", "advisor_id": "adv-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdvisorHandlerMyAdvisor(t *testing.T) {
	svc := &advisorServiceStub{}
	r := newTestRouter(studentClaims)
	r.GET("/student/advisor", NewAdvisorHandler(svc).MyAdvisor)

	rec := perform(r, http.MethodGet, "/student/advisor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", svc.studentID)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "no advisor assigned")
	rec = perform(r, http.MethodGet, "/student/advisor", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
