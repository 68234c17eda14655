package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type selectionReader interface {
	ListByStudent(ctx context.Context, studentID string, status models.SelectionStatus) ([]models.SelectionDetail, error)
	ListPending(ctx context.Context, advisorID string) ([]models.SelectionDetail, error)
}

// SelectionService serves read-only selection views. Writes go through the EnrollmentLedger.
type SelectionService struct {
	repo selectionReader
}

// NewSelectionService constructs a SelectionService.
func NewSelectionService(repo selectionReader) *SelectionService {
	return &SelectionService{repo: repo}
}

// ListForStudent returns the student's selections ordered by priority.
func (s *SelectionService) ListForStudent(ctx context.Context, studentID string, status string) ([]models.SelectionDetail, error) {
	st := models.SelectionStatus(status)
	switch st {
	case "", models.SelectionPending, models.SelectionApproved, models.SelectionRejected, models.SelectionWaitlisted:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown selection status %q", status))
	}
	details, err := s.repo.ListByStudent(ctx, studentID, st)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list selections")
	}
	return nonNilDetails(details), nil
}

// Schedule returns the student's approved courses.
func (s *SelectionService) Schedule(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	return s.ListForStudent(ctx, studentID, string(models.SelectionApproved))
}

// Pending lists selections awaiting review, oldest first. Advisors see only their assigned students.
func (s *SelectionService) Pending(ctx context.Context, actor models.Actor) ([]models.SelectionDetail, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	advisorID := actor.UserID
	if actor.IsAdmin() {
		advisorID = ""
	}
	details, err := s.repo.ListPending(ctx, advisorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending selections")
	}
	return nonNilDetails(details), nil
}

func nonNilDetails(details []models.SelectionDetail) []models.SelectionDetail {
	if details == nil {
		return []models.SelectionDetail{}
	}
	return details
}
