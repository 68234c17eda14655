package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/crams-api/internal/models"
)

// AdvisorAssignmentRepository manages student to advisor links.
type AdvisorAssignmentRepository struct {
	db *sqlx.DB
}

// NewAdvisorAssignmentRepository constructs the repository.
func NewAdvisorAssignmentRepository(db *sqlx.DB) *AdvisorAssignmentRepository {
	return &AdvisorAssignmentRepository{db: db}
}

func (r *AdvisorAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// IsAssigned reports whether advisorID advises studentID.
func (r *AdvisorAssignmentRepository) IsAssigned(ctx context.Context, exec sqlx.ExtContext, advisorID, studentID string) (bool, error) {
	if !isUUID(advisorID) || !isUUID(studentID) {
		return false, nil
	}
	const query = `SELECT EXISTS (SELECT 1 FROM advisor_assignments WHERE advisor_id = $1 AND student_id = $2)`
	var ok bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &ok, query, advisorID, studentID); err != nil {
		return false, fmt.Errorf("check advisor assignment: %w", err)
	}
	return ok, nil
}

// Create inserts an assignment.
func (r *AdvisorAssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, a *models.AdvisorAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO advisor_assignments (id, student_id, advisor_id, assigned_at) VALUES (:id, :student_id, :advisor_id, :assigned_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, a); err != nil {
		return fmt.Errorf("create advisor assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AdvisorAssignmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM advisor_assignments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete advisor assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete advisor assignment rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns all assignments with names, newest first.
func (r *AdvisorAssignmentRepository) List(ctx context.Context) ([]models.AdvisorAssignmentDetail, error) {
	const query = `SELECT aa.id, aa.student_id, aa.advisor_id, aa.assigned_at,
s.first_name || ' ' || s.last_name AS student_name, s.email AS student_email, s.student_number,
a.first_name || ' ' || a.last_name AS advisor_name, a.email AS advisor_email
FROM advisor_assignments aa
JOIN users s ON s.id = aa.student_id
JOIN users a ON a.id = aa.advisor_id
ORDER BY aa.assigned_at DESC`
	var items []models.AdvisorAssignmentDetail
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list advisor assignments: %w", err)
	}
	return items, nil
}

// AdvisorForStudent returns the most recently assigned advisor of a student.
func (r *AdvisorAssignmentRepository) AdvisorForStudent(ctx context.Context, studentID string) (*models.User, error) {
	if !isUUID(studentID) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.student_number, u.department, u.year_level, u.created_at, u.updated_at
FROM advisor_assignments aa JOIN users u ON u.id = aa.advisor_id
WHERE aa.student_id = $1 ORDER BY aa.assigned_at DESC LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find advisor for student: %w", err)
	}
	return &user, nil
}

// StudentsForAdvisor lists students assigned to an advisor with their pending counts.
func (r *AdvisorAssignmentRepository) StudentsForAdvisor(ctx context.Context, advisorID string) ([]models.AdvisedStudent, error) {
	const query = `SELECT u.id, u.email, u.first_name, u.last_name, u.student_number, u.department, u.year_level, aa.assigned_at,
(SELECT COUNT(*) FROM course_selections cs WHERE cs.student_id = u.id AND cs.status = 'pending') AS pending_selections
FROM advisor_assignments aa JOIN users u ON u.id = aa.student_id
WHERE aa.advisor_id = $1 ORDER BY u.last_name, u.first_name`
	var items []models.AdvisedStudent
	if err := r.db.SelectContext(ctx, &items, query, advisorID); err != nil {
		return nil, fmt.Errorf("list advised students: %w", err)
	}
	return items, nil
}
