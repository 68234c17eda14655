package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
)

var courseRowColumns = []string{"id", "course_code", "course_name", "description", "credits", "department", "prerequisites", "max_capacity", "current_enrollment", "schedule_days", "schedule_time", "instructor", "semester", "year", "is_active", "created_at", "updated_at"}

func courseRow(rows *sqlmock.Rows, id, code string, capacity, enrolled int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, code, "Intro", nil, 3, "CS", "{}", capacity, enrolled, "MWF", "09:00-10:00", nil, "Fall", 2024, true, now, now)
}

const (
	courseID  = "6f1c9a52-3d0e-4f8e-9a51-2b7c4e0d1a11"
	missingID = "0b7e2d4c-8a1f-4c3e-b6d5-9e2f1a3c4b55"
)

func TestCourseGetForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + courseColumns + " FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs(courseID).
		WillReturnRows(courseRow(sqlmock.NewRows(courseRowColumns), courseID, "CS101", 30, 29))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	course, err := repo.GetForUpdate(context.Background(), tx, courseID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, course.AvailableSeats())
	assert.False(t, course.IsFull())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseGetForUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("FOR UPDATE").WithArgs(missingID).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForUpdate(context.Background(), nil, missingID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCourseLookupsSkipMalformedIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	_, err = repo.GetForUpdate(context.Background(), tx, "CS101")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Commit())

	_, err = repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	courses, err := repo.FindByIDs(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Empty(t, courses)
	ok, err := repo.Deactivate(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE is_active = TRUE AND department = $1 AND year = $2 AND (LOWER(course_code) LIKE $3")).
		WithArgs("CS", 2024, "%intro%").
		WillReturnRows(courseRow(sqlmock.NewRows(courseRowColumns), "c1", "CS101", 30, 0))

	courses, err := repo.List(context.Background(), models.CourseFilter{Department: "CS", Year: 2024, Search: "Intro"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementEnrollmentGuardsCapacity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET current_enrollment = current_enrollment + $2")).
		WithArgs("c1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET current_enrollment = current_enrollment + $2")).
		WithArgs("c1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.IncrementEnrollment(context.Background(), nil, "c1", 1))
	assert.ErrorIs(t, repo.IncrementEnrollment(context.Background(), nil, "c1", 1), ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCreateResetsEnrollment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: "CS200", Name: "Data", Credits: 3, Department: "CS", Capacity: 20, Enrolled: 5, Active: true}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.Equal(t, 0, course.Enrolled)
	assert.NotNil(t, course.Prerequisites)
	assert.NoError(t, mock.ExpectationsWereMet())
}
