package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/crams-api/internal/models"
)

const courseColumns = `id, course_code, course_name, description, credits, department, prerequisites, max_capacity, current_enrollment, schedule_days, schedule_time, instructor, semester, year, is_active, created_at, updated_at`

// CourseRepository reads and writes the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a course with zero enrollment.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.Prerequisites == nil {
		course.Prerequisites = pq.StringArray{}
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	course.Enrolled = 0

	const query = `INSERT INTO courses (` + courseColumns + `)
VALUES (:id, :course_code, :course_name, :description, :credits, :department, :prerequisites, :max_capacity, :current_enrollment, :schedule_days, :schedule_time, :instructor, :semester, :year, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// GetForUpdate reads a course and locks its row for the rest of the transaction.
func (r *CourseRepository) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 FOR UPDATE`
	var course models.Course
	if err := sqlx.GetContext(ctx, r.exec(exec), &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}
	return &course, nil
}

// FindByIDs returns the courses matching ids, ordered by code.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	ids = uuidsOnly(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ANY($1) ORDER BY course_code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}
	return courses, nil
}

// List returns active courses matching the filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	conditions := []string{"is_active = TRUE"}
	var args []interface{}

	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(course_code) LIKE $%d OR LOWER(course_name) LIKE $%d OR LOWER(COALESCE(instructor, '')) LIKE $%d)", len(args), len(args), len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM courses WHERE %s ORDER BY course_code", courseColumns, strings.Join(conditions, " AND "))
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Update writes catalog fields. Capacity and enrollment are left to the ledger.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	if course.Prerequisites == nil {
		course.Prerequisites = pq.StringArray{}
	}
	const query = `UPDATE courses SET course_name = :course_name, description = :description, credits = :credits, department = :department,
prerequisites = :prerequisites, schedule_days = :schedule_days, schedule_time = :schedule_time, instructor = :instructor,
semester = :semester, year = :year, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Deactivate soft deletes a course.
func (r *CourseRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("deactivate course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate course rows affected: %w", err)
	}
	return affected > 0, nil
}

// Departments lists distinct departments of active courses.
func (r *CourseRepository) Departments(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT department FROM courses WHERE is_active = TRUE ORDER BY department`
	var departments []string
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// SetCapacity overwrites the capacity of a course.
func (r *CourseRepository) SetCapacity(ctx context.Context, exec sqlx.ExtContext, id string, capacity int) error {
	const query = `UPDATE courses SET max_capacity = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, capacity, time.Now().UTC()); err != nil {
		return fmt.Errorf("set course capacity: %w", err)
	}
	return nil
}

// IncrementEnrollment adds delta seats, refusing to exceed capacity.
func (r *CourseRepository) IncrementEnrollment(ctx context.Context, exec sqlx.ExtContext, id string, delta int) error {
	const query = `UPDATE courses SET current_enrollment = current_enrollment + $2, updated_at = $3
WHERE id = $1 AND current_enrollment + $2 <= max_capacity AND current_enrollment + $2 >= 0`
	res, err := r.exec(exec).ExecContext(ctx, query, id, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment enrollment rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}
