package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/crams-api/internal/models"
)

// ReportRepository runs the read-only aggregates behind admin dashboards and reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// RoleCounts returns the number of users per role.
func (r *ReportRepository) RoleCounts(ctx context.Context) ([]models.RoleCount, error) {
	const query = `SELECT role, COUNT(*) AS count FROM users GROUP BY role ORDER BY role`
	var rows []models.RoleCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	return rows, nil
}

// EnrollmentTotals sums capacity and enrollment over active courses.
func (r *ReportRepository) EnrollmentTotals(ctx context.Context) (models.EnrollmentTotals, error) {
	const query = `SELECT COUNT(*) AS active_courses, COALESCE(SUM(max_capacity), 0) AS total_capacity, COALESCE(SUM(current_enrollment), 0) AS total_enrollment
FROM courses WHERE is_active = TRUE`
	var totals models.EnrollmentTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return totals, fmt.Errorf("sum enrollment totals: %w", err)
	}
	return totals, nil
}

// RecentActivity returns the latest selection changes.
func (r *ReportRepository) RecentActivity(ctx context.Context, limit int) ([]models.RecentActivity, error) {
	const query = `SELECT cs.id, s.first_name || ' ' || s.last_name AS student_name, c.course_code, cs.status,
COALESCE(cs.reviewed_at, cs.selected_at) AS changed_at
FROM course_selections cs
JOIN users s ON s.id = cs.student_id
JOIN courses c ON c.id = cs.course_id
ORDER BY changed_at DESC LIMIT $1`
	var rows []models.RecentActivity
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return rows, nil
}

// EnrollmentReport aggregates selections per active course.
func (r *ReportRepository) EnrollmentReport(ctx context.Context) ([]models.EnrollmentReportRow, error) {
	const query = `SELECT c.course_code, c.course_name, c.department, c.max_capacity, c.current_enrollment,
COUNT(cs.id) FILTER (WHERE cs.status = 'pending') AS pending_count,
COUNT(cs.id) FILTER (WHERE cs.status = 'approved') AS approved_count,
COUNT(cs.id) FILTER (WHERE cs.status = 'rejected') AS rejected_count,
ROUND(c.current_enrollment::numeric * 100 / GREATEST(c.max_capacity, 1), 2)::float8 AS utilization_pct
FROM courses c LEFT JOIN course_selections cs ON cs.course_id = c.id
WHERE c.is_active = TRUE
GROUP BY c.id ORDER BY c.course_code`
	var rows []models.EnrollmentReportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("enrollment report: %w", err)
	}
	return rows, nil
}

// AdvisorActivity aggregates review work per advisor.
func (r *ReportRepository) AdvisorActivity(ctx context.Context) ([]models.AdvisorActivityRow, error) {
	const query = `SELECT u.first_name || ' ' || u.last_name AS advisor_name, u.email,
(SELECT COUNT(*) FROM advisor_assignments aa WHERE aa.advisor_id = u.id) AS assigned_students,
COUNT(cs.id) AS reviews_completed,
COUNT(cs.id) FILTER (WHERE cs.status = 'approved') AS approvals,
COUNT(cs.id) FILTER (WHERE cs.status = 'rejected') AS rejections,
MAX(cs.reviewed_at) AS last_review_at
FROM users u LEFT JOIN course_selections cs ON cs.advisor_id = u.id
WHERE u.role = 'ADVISOR'
GROUP BY u.id ORDER BY advisor_name`
	var rows []models.AdvisorActivityRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("advisor activity report: %w", err)
	}
	return rows, nil
}

// StudentProgress aggregates selections and approved credits per student.
func (r *ReportRepository) StudentProgress(ctx context.Context) ([]models.StudentProgressRow, error) {
	const query = `SELECT u.first_name || ' ' || u.last_name AS student_name, u.student_number, u.department, u.year_level,
COUNT(cs.id) AS total_selections,
COUNT(cs.id) FILTER (WHERE cs.status = 'approved') AS approved_courses,
COUNT(cs.id) FILTER (WHERE cs.status = 'pending') AS pending_courses,
COALESCE(SUM(c.credits) FILTER (WHERE cs.status = 'approved'), 0) AS approved_credits
FROM users u
LEFT JOIN course_selections cs ON cs.student_id = u.id
LEFT JOIN courses c ON c.id = cs.course_id
WHERE u.role = 'STUDENT'
GROUP BY u.id ORDER BY student_name`
	var rows []models.StudentProgressRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("student progress report: %w", err)
	}
	return rows, nil
}

// TimeSlotUsage groups active courses by meeting time, busiest first.
func (r *ReportRepository) TimeSlotUsage(ctx context.Context, limit int) ([]models.TimeSlotUsage, error) {
	const query = `SELECT schedule_time, COUNT(*) AS course_count, COALESCE(SUM(current_enrollment), 0) AS total_enrolled
FROM courses WHERE is_active = TRUE AND schedule_time <> ''
GROUP BY schedule_time ORDER BY course_count DESC, schedule_time LIMIT $1`
	var rows []models.TimeSlotUsage
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list time slot usage: %w", err)
	}
	return rows, nil
}

// DepartmentUtilization averages enrollment over capacity per department for active courses.
func (r *ReportRepository) DepartmentUtilization(ctx context.Context) ([]models.DepartmentUtilization, error) {
	const query = `SELECT department, COUNT(*) AS course_count,
COALESCE(ROUND(AVG(current_enrollment::numeric / NULLIF(max_capacity, 0) * 100), 2), 0)::float8 AS avg_utilization
FROM courses WHERE is_active = TRUE
GROUP BY department ORDER BY avg_utilization DESC, department`
	var rows []models.DepartmentUtilization
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list department utilization: %w", err)
	}
	return rows, nil
}

// ActiveSchedules returns active courses that have a meeting time.
func (r *ReportRepository) ActiveSchedules(ctx context.Context) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE is_active = TRUE AND schedule_time <> '' ORDER BY course_code`
	var rows []models.Course
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return rows, nil
}

const seatConflictSelect = `SELECT c.id, c.course_code, c.course_name, c.max_capacity, c.current_enrollment,
(SELECT COUNT(*) FROM course_selections cs WHERE cs.course_id = c.id AND cs.status = 'pending') AS pending_count
FROM courses c WHERE c.is_active = TRUE AND `

// NearCapacity lists courses at or above ratio of capacity but not full.
func (r *ReportRepository) NearCapacity(ctx context.Context, ratio float64) ([]models.SeatConflictCourse, error) {
	query := seatConflictSelect + `c.current_enrollment < c.max_capacity AND c.current_enrollment >= c.max_capacity * $1 ORDER BY c.course_code`
	var rows []models.SeatConflictCourse
	if err := r.db.SelectContext(ctx, &rows, query, ratio); err != nil {
		return nil, fmt.Errorf("list near-capacity courses: %w", err)
	}
	return rows, nil
}

// Waitlisted lists full courses that still have pending selections.
func (r *ReportRepository) Waitlisted(ctx context.Context) ([]models.SeatConflictCourse, error) {
	query := seatConflictSelect + `c.current_enrollment >= c.max_capacity
AND EXISTS (SELECT 1 FROM course_selections cs WHERE cs.course_id = c.id AND cs.status = 'pending') ORDER BY c.course_code`
	var rows []models.SeatConflictCourse
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list waitlisted courses: %w", err)
	}
	return rows, nil
}
