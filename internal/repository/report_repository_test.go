package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
)

func TestReportRoleCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role, COUNT(*) AS count FROM users GROUP BY role")).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).AddRow("ADMIN", 1).AddRow("STUDENT", 40))

	rows, err := repo.RoleCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.RoleStudent, rows[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportNearCapacityUsesRatio(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("c.current_enrollment >= c.max_capacity * $1")).
		WithArgs(0.9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_code", "course_name", "max_capacity", "current_enrollment", "pending_count"}).
			AddRow("c1", "CS101", "Intro", 10, 9, 2))

	rows, err := repo.NearCapacity(context.Background(), 0.9)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportEnrollmentTotals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery("FROM courses WHERE is_active = TRUE").
		WillReturnRows(sqlmock.NewRows([]string{"active_courses", "total_capacity", "total_enrollment"}).AddRow(4, 100, 75))

	totals, err := repo.EnrollmentTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, totals.TotalCapacity)
	assert.Equal(t, 75, totals.TotalEnrollment)
}

func TestReportTimeSlotUsage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY schedule_time ORDER BY course_count DESC, schedule_time LIMIT $1")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"schedule_time", "course_count", "total_enrolled"}).
			AddRow("09:00-10:00", 3, 72).
			AddRow("13:00-14:30", 1, 18))

	rows, err := repo.TimeSlotUsage(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "09:00-10:00", rows[0].ScheduleTime)
	assert.Equal(t, 72, rows[0].TotalEnrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportDepartmentUtilization(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("NULLIF(max_capacity, 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"department", "course_count", "avg_utilization"}).
			AddRow("CS", 4, 87.5).
			AddRow("MATH", 2, 40.25))

	rows, err := repo.DepartmentUtilization(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CS", rows[0].Department)
	assert.InDelta(t, 87.5, rows[0].AvgUtilization, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportActiveSchedules(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE is_active = TRUE AND schedule_time <> '' ORDER BY course_code")).
		WillReturnRows(courseRow(courseRow(sqlmock.NewRows(courseRowColumns), courseID, "CS101", 30, 10), missingID, "CS102", 25, 5))

	courses, err := repo.ActiveSchedules(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "MWF", courses[1].ScheduleDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
