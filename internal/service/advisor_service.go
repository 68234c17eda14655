package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/crams-api/internal/models"
	"github.com/noah-isme/crams-api/internal/repository"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type advisorAssignmentStore interface {
	IsAssigned(ctx context.Context, exec sqlx.ExtContext, advisorID, studentID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, a *models.AdvisorAssignment) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]models.AdvisorAssignmentDetail, error)
	AdvisorForStudent(ctx context.Context, studentID string) (*models.User, error)
	StudentsForAdvisor(ctx context.Context, advisorID string) ([]models.AdvisedStudent, error)
}

type advisedSelectionReader interface {
	ListByStudent(ctx context.Context, studentID string, status models.SelectionStatus) ([]models.SelectionDetail, error)
	CountByStatus(ctx context.Context, advisorID string) (models.SelectionStatusCounts, error)
}

// AdvisorServiceDeps groups constructor dependencies.
type AdvisorServiceDeps struct {
	Users         userFinder
	Assignments   advisorAssignmentStore
	Selections    advisedSelectionReader
	Notifications notificationSink
	Tx            txProvider
	Publisher     NotificationPublisher
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// AdvisorService manages advisor assignments and the advisor's view of their students.
type AdvisorService struct {
	users         userFinder
	assignments   advisorAssignmentStore
	selections    advisedSelectionReader
	notifications notificationSink
	tx            txProvider
	publisher     NotificationPublisher
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAdvisorService constructs an AdvisorService.
func NewAdvisorService(deps AdvisorServiceDeps) *AdvisorService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AdvisorService{
		users:         deps.Users,
		assignments:   deps.Assignments,
		selections:    deps.Selections,
		notifications: deps.Notifications,
		tx:            deps.Tx,
		publisher:     deps.Publisher,
		validator:     deps.Validator,
		logger:        deps.Logger,
	}
}

// Assign links a student to an advisor and notifies the student.
func (s *AdvisorService) Assign(ctx context.Context, req models.AssignAdvisorRequest) (assignment *models.AdvisorAssignment, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id and advisor_id are required")
	}
	student, err := s.userWithRole(ctx, req.StudentID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	adv, err := s.userWithRole(ctx, req.AdvisorID, models.RoleAdvisor)
	if err != nil {
		return nil, err
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	exists, err := s.assignments.IsAssigned(ctx, tx, adv.ID, student.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "this advisor is already assigned to this student")
	}

	assignment = &models.AdvisorAssignment{StudentID: student.ID, AdvisorID: adv.ID, AssignedAt: time.Now().UTC()}
	if err = s.assignments.Create(ctx, tx, assignment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "this advisor is already assigned to this student")
		}
		return nil, appErrors.Internal(err, "failed to create assignment")
	}

	note := models.Notification{
		UserID:   student.ID,
		Title:    "Advisor Assigned",
		Body:     fmt.Sprintf("%s has been assigned as your academic advisor.", adv.FullName()),
		Category: models.NotificationAdvisorAssigned,
	}
	if err = s.notifications.Create(ctx, tx, &note); err != nil {
		return nil, appErrors.Internal(err, "failed to record notification")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Internal(err, "failed to commit transaction")
	}

	if s.publisher != nil {
		s.publisher.Publish(note)
	}
	s.logger.Info("advisor assigned", zap.String("student_id", student.ID), zap.String("advisor_id", adv.ID))
	return assignment, nil
}

// List returns every assignment.
func (s *AdvisorService) List(ctx context.Context) ([]models.AdvisorAssignmentDetail, error) {
	items, err := s.assignments.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}
	if items == nil {
		items = []models.AdvisorAssignmentDetail{}
	}
	return items, nil
}

// Unassign deletes an assignment.
func (s *AdvisorService) Unassign(ctx context.Context, id string) error {
	ok, err := s.assignments.Delete(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete assignment")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return nil
}

// Students lists the students advised by the caller.
func (s *AdvisorService) Students(ctx context.Context, actor models.Actor) ([]models.AdvisedStudent, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	items, err := s.assignments.StudentsForAdvisor(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	if items == nil {
		items = []models.AdvisedStudent{}
	}
	return items, nil
}

// StudentSelections returns a student's selections. Advisors must be assigned to the student.
func (s *AdvisorService) StudentSelections(ctx context.Context, actor models.Actor, studentID string) ([]models.SelectionDetail, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		ok, err := s.assignments.IsAssigned(ctx, nil, actor.UserID, studentID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check assignment")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this student")
		}
	}
	details, err := s.selections.ListByStudent(ctx, studentID, "")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list selections")
	}
	return nonNilDetails(details), nil
}

// Statistics summarises selections in the caller's scope.
func (s *AdvisorService) Statistics(ctx context.Context, actor models.Actor) (*models.AdvisorStatistics, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	scope := actor.UserID
	if actor.IsAdmin() {
		scope = ""
	}
	counts, err := s.selections.CountByStatus(ctx, scope)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count selections")
	}
	stats := &models.AdvisorStatistics{Selections: counts}
	if !actor.IsAdmin() {
		students, err := s.assignments.StudentsForAdvisor(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to count students")
		}
		stats.AssignedStudents = len(students)
	}
	return stats, nil
}

// AdvisorOf returns the advisor of a student.
func (s *AdvisorService) AdvisorOf(ctx context.Context, studentID string) (*models.UserInfo, error) {
	adv, err := s.assignments.AdvisorForStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no advisor assigned")
		}
		return nil, appErrors.Internal(err, "failed to load advisor")
	}
	info := models.NewUserInfo(adv)
	return &info, nil
}

func (s *AdvisorService) userWithRole(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if user == nil || user.Role != role {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", roleNoun(role)))
	}
	return user, nil
}

func roleNoun(role models.UserRole) string {
	switch role {
	case models.RoleStudent:
		return "student"
	case models.RoleAdvisor:
		return "advisor"
	default:
		return "user"
	}
}
