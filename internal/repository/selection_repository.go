package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/crams-api/internal/models"
)

const selectionColumns = `id, student_id, course_id, status, advisor_id, advisor_comments, priority, selected_at, reviewed_at`

const selectionDetailQuery = `SELECT cs.id, cs.student_id, cs.course_id, cs.status, cs.advisor_id, cs.advisor_comments, cs.priority, cs.selected_at, cs.reviewed_at,
c.course_code, c.course_name, c.credits, c.department, c.schedule_days, c.schedule_time, c.instructor,
s.first_name || ' ' || s.last_name AS student_name, s.email AS student_email, s.student_number,
CASE WHEN a.id IS NULL THEN NULL ELSE a.first_name || ' ' || a.last_name END AS advisor_name
FROM course_selections cs
JOIN courses c ON c.id = cs.course_id
JOIN users s ON s.id = cs.student_id
LEFT JOIN users a ON a.id = cs.advisor_id`

// SelectionRepository stores course selections.
type SelectionRepository struct {
	db *sqlx.DB
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(db *sqlx.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

func (r *SelectionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a pending selection.
func (r *SelectionRepository) Create(ctx context.Context, exec sqlx.ExtContext, selection *models.Selection) error {
	if selection.ID == "" {
		selection.ID = uuid.NewString()
	}
	if selection.Status == "" {
		selection.Status = models.SelectionPending
	}
	if selection.Priority < 1 {
		selection.Priority = 1
	}
	if selection.SelectedAt.IsZero() {
		selection.SelectedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_selections (` + selectionColumns + `)
VALUES (:id, :student_id, :course_id, :status, :advisor_id, :advisor_comments, :priority, :selected_at, :reviewed_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, selection); err != nil {
		return fmt.Errorf("create selection: %w", err)
	}
	return nil
}

// ExistsForPair reports whether the student already holds a selection for the course.
func (r *SelectionRepository) ExistsForPair(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM course_selections WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check selection pair: %w", err)
	}
	return exists, nil
}

// GetForUpdate reads a selection and locks its row.
func (r *SelectionRepository) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Selection, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + selectionColumns + ` FROM course_selections WHERE id = $1 FOR UPDATE`
	var selection models.Selection
	if err := sqlx.GetContext(ctx, r.exec(exec), &selection, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock selection: %w", err)
	}
	return &selection, nil
}

// CourseIDs maps the given selection ids to their course ids without locking.
// Ids that match no selection are absent from the result.
func (r *SelectionRepository) CourseIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	ids = uuidsOnly(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID       string `db:"id"`
		CourseID string `db:"course_id"`
	}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, `SELECT id, course_id FROM course_selections WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("map selection courses: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.CourseID
	}
	return out, nil
}

// SetReview records a decision on a selection.
func (r *SelectionRepository) SetReview(ctx context.Context, exec sqlx.ExtContext, review models.SelectionReview) error {
	const query = `UPDATE course_selections SET status = :status, advisor_id = :advisor_id, advisor_comments = :advisor_comments, reviewed_at = :reviewed_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, review); err != nil {
		return fmt.Errorf("review selection: %w", err)
	}
	return nil
}

// Delete removes a selection.
func (r *SelectionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM course_selections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	return nil
}

// UpdatePriority changes the priority hint of a selection.
func (r *SelectionRepository) UpdatePriority(ctx context.Context, exec sqlx.ExtContext, id string, priority int) error {
	if _, err := r.exec(exec).ExecContext(ctx, `UPDATE course_selections SET priority = $2 WHERE id = $1`, id, priority); err != nil {
		return fmt.Errorf("update selection priority: %w", err)
	}
	return nil
}

// ListPendingOrderedByAge locks up to limit pending selections of a course, oldest first.
func (r *SelectionRepository) ListPendingOrderedByAge(ctx context.Context, exec sqlx.ExtContext, courseID string, limit int) ([]models.Selection, error) {
	query := `SELECT ` + selectionColumns + ` FROM course_selections
WHERE course_id = $1 AND status = 'pending' ORDER BY selected_at ASC, id ASC LIMIT $2 FOR UPDATE`
	var selections []models.Selection
	if err := sqlx.SelectContext(ctx, r.exec(exec), &selections, query, courseID, limit); err != nil {
		return nil, fmt.Errorf("list pending selections by age: %w", err)
	}
	return selections, nil
}

// FindPendingIDsForStudents returns pending selection ids on a course for the given students, oldest first.
func (r *SelectionRepository) FindPendingIDsForStudents(ctx context.Context, courseID string, studentIDs []string) ([]string, error) {
	studentIDs = uuidsOnly(studentIDs)
	if !isUUID(courseID) || len(studentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id FROM course_selections WHERE course_id = $1 AND status = 'pending' AND student_id = ANY($2) ORDER BY selected_at ASC, id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("find pending selections for students: %w", err)
	}
	return ids, nil
}

// FindDetail returns a selection with joined course and student data.
func (r *SelectionRepository) FindDetail(ctx context.Context, id string) (*models.SelectionDetail, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	query := selectionDetailQuery + ` WHERE cs.id = $1`
	var detail models.SelectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find selection detail: %w", err)
	}
	return &detail, nil
}

// ListByStudent returns a student's selections, optionally filtered by status.
func (r *SelectionRepository) ListByStudent(ctx context.Context, studentID string, status models.SelectionStatus) ([]models.SelectionDetail, error) {
	if !isUUID(studentID) {
		return nil, nil
	}
	query := selectionDetailQuery + ` WHERE cs.student_id = $1`
	args := []interface{}{studentID}
	if status != "" {
		query += ` AND cs.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY cs.priority ASC, cs.selected_at ASC`
	var details []models.SelectionDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list student selections: %w", err)
	}
	return details, nil
}

// ListPending returns pending selections oldest first. An empty advisorID lists all.
func (r *SelectionRepository) ListPending(ctx context.Context, advisorID string) ([]models.SelectionDetail, error) {
	query := selectionDetailQuery + ` WHERE cs.status = 'pending'`
	var args []interface{}
	if advisorID != "" {
		query += ` AND EXISTS (SELECT 1 FROM advisor_assignments aa WHERE aa.student_id = cs.student_id AND aa.advisor_id = $1)`
		args = append(args, advisorID)
	}
	query += ` ORDER BY cs.selected_at ASC, cs.id ASC`
	var details []models.SelectionDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list pending selections: %w", err)
	}
	return details, nil
}

// CountByStatus aggregates selections. When advisorID is set only assigned students count.
func (r *SelectionRepository) CountByStatus(ctx context.Context, advisorID string) (models.SelectionStatusCounts, error) {
	query := `SELECT
COUNT(*) FILTER (WHERE cs.status = 'pending') AS pending,
COUNT(*) FILTER (WHERE cs.status = 'approved') AS approved,
COUNT(*) FILTER (WHERE cs.status = 'rejected') AS rejected,
COUNT(*) FILTER (WHERE cs.status = 'waitlisted') AS waitlisted
FROM course_selections cs`
	var args []interface{}
	if advisorID != "" {
		query += ` WHERE EXISTS (SELECT 1 FROM advisor_assignments aa WHERE aa.student_id = cs.student_id AND aa.advisor_id = $1)`
		args = append(args, advisorID)
	}
	var counts models.SelectionStatusCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return counts, fmt.Errorf("count selections by status: %w", err)
	}
	return counts, nil
}
