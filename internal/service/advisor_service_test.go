package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type assignmentStoreStub struct {
	assignments []models.AdvisorAssignment
	students    []models.AdvisedStudent
	advisorOf   map[string]*models.User
}

func (a *assignmentStoreStub) IsAssigned(ctx context.Context, exec sqlx.ExtContext, advisorID, studentID string) (bool, error) {
	for _, item := range a.assignments {
		if item.AdvisorID == advisorID && item.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (a *assignmentStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, item *models.AdvisorAssignment) error {
	item.ID = "asg-new"
	a.assignments = append(a.assignments, *item)
	return nil
}

func (a *assignmentStoreStub) Delete(ctx context.Context, id string) (bool, error) {
	for i, item := range a.assignments {
		if item.ID == id {
			a.assignments = append(a.assignments[:i], a.assignments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (a *assignmentStoreStub) List(ctx context.Context) ([]models.AdvisorAssignmentDetail, error) {
	return nil, nil
}

func (a *assignmentStoreStub) AdvisorForStudent(ctx context.Context, studentID string) (*models.User, error) {
	if u, ok := a.advisorOf[studentID]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (a *assignmentStoreStub) StudentsForAdvisor(ctx context.Context, advisorID string) ([]models.AdvisedStudent, error) {
	return a.students, nil
}

type advisorFixture struct {
	svc         *AdvisorService
	assignments *assignmentStoreStub
	selections  *selectionReaderStub
	state       *ledgerState
	publisher   *publisherStub
	mock        sqlmock.Sqlmock
}

func newAdvisorFixture(t *testing.T) *advisorFixture {
	users := newMockUserRepo(
		&models.User{ID: student.UserID, Role: models.RoleStudent, FirstName: "Ana", LastName: "Lee"},
		&models.User{ID: advisor.UserID, Role: models.RoleAdvisor, FirstName: "Budi", LastName: "Santoso"},
	)
	tx, mock := newTxProviderMock(t)
	f := &advisorFixture{
		assignments: &assignmentStoreStub{advisorOf: map[string]*models.User{}},
		selections:  &selectionReaderStub{},
		state:       newLedgerState(),
		publisher:   &publisherStub{},
		mock:        mock,
	}
	f.svc = NewAdvisorService(AdvisorServiceDeps{
		Users:         users,
		Assignments:   f.assignments,
		Selections:    f.selections,
		Notifications: notificationSinkStub{f.state},
		Tx:            tx,
		Publisher:     f.publisher,
	})
	return f
}

func TestAdvisorServiceAssign(t *testing.T) {
	f := newAdvisorFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	assignment, err := f.svc.Assign(context.Background(), models.AssignAdvisorRequest{StudentID: student.UserID, AdvisorID: advisor.UserID})
	require.NoError(t, err)
	assert.Equal(t, "asg-new", assignment.ID)
	require.Len(t, f.state.notifications, 1)
	note := f.state.notifications[0]
	assert.Equal(t, "Advisor Assigned", note.Title)
	assert.Equal(t, "Budi Santoso has been assigned as your academic advisor.", note.Body)
	assert.Equal(t, models.NotificationAdvisorAssigned, note.Category)
	assert.Len(t, f.publisher.published, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdvisorServiceAssignDuplicate(t *testing.T) {
	f := newAdvisorFixture(t)
	f.assignments.assignments = []models.AdvisorAssignment{{ID: "a1", StudentID: student.UserID, AdvisorID: advisor.UserID}}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Assign(context.Background(), models.AssignAdvisorRequest{StudentID: student.UserID, AdvisorID: advisor.UserID})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Empty(t, f.state.notifications)
	assert.Empty(t, f.publisher.published)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdvisorServiceAssignWrongRole(t *testing.T) {
	f := newAdvisorFixture(t)

	_, err := f.svc.Assign(context.Background(), models.AssignAdvisorRequest{StudentID: advisor.UserID, AdvisorID: advisor.UserID})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.Assign(context.Background(), models.AssignAdvisorRequest{StudentID: student.UserID, AdvisorID: "missing"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.Assign(context.Background(), models.AssignAdvisorRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAdvisorServiceUnassign(t *testing.T) {
	f := newAdvisorFixture(t)
	f.assignments.assignments = []models.AdvisorAssignment{{ID: "a1", StudentID: student.UserID, AdvisorID: advisor.UserID}}

	require.NoError(t, f.svc.Unassign(context.Background(), "a1"))
	assert.ErrorIs(t, f.svc.Unassign(context.Background(), "a1"), appErrors.ErrNotFound)
}

func TestAdvisorServiceStudentSelectionsRequiresAssignment(t *testing.T) {
	f := newAdvisorFixture(t)

	_, err := f.svc.StudentSelections(context.Background(), advisor, student.UserID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	items, err := f.svc.StudentSelections(context.Background(), admin, student.UserID)
	require.NoError(t, err)
	assert.NotNil(t, items)

	f.assignments.assignments = []models.AdvisorAssignment{{ID: "a1", StudentID: student.UserID, AdvisorID: advisor.UserID}}
	_, err = f.svc.StudentSelections(context.Background(), advisor, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.SelectionStatus(""), f.selections.lastStatus)
}

func TestAdvisorServiceStatistics(t *testing.T) {
	f := newAdvisorFixture(t)
	f.selections.counts = models.SelectionStatusCounts{Pending: 2, Approved: 4, Rejected: 1}
	f.assignments.students = []models.AdvisedStudent{{ID: student.UserID}}

	stats, err := f.svc.Statistics(context.Background(), advisor)
	require.NoError(t, err)
	assert.Equal(t, advisor.UserID, f.selections.lastAdvisorID)
	assert.Equal(t, 2, stats.Selections.Pending)
	assert.Equal(t, 1, stats.AssignedStudents)

	stats, err = f.svc.Statistics(context.Background(), admin)
	require.NoError(t, err)
	assert.Empty(t, f.selections.lastAdvisorID)
	assert.Zero(t, stats.AssignedStudents)

	_, err = f.svc.Statistics(context.Background(), student)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAdvisorServiceAdvisorOf(t *testing.T) {
	f := newAdvisorFixture(t)

	_, err := f.svc.AdvisorOf(context.Background(), student.UserID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	f.assignments.advisorOf[student.UserID] = &models.User{ID: advisor.UserID, Email: "budi@advisor.com", Role: models.RoleAdvisor, PasswordHash: "secret"}
	info, err := f.svc.AdvisorOf(context.Background(), student.UserID)
	require.NoError(t, err)
	assert.Equal(t, "budi@advisor.com", info.Email)
}
