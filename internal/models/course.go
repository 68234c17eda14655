package models

import (
	"time"

	"github.com/lib/pq"
)

// Course is a catalog entry. Capacity and Enrolled are written only by the enrollment ledger.
type Course struct {
	ID            string         `db:"id" json:"id"`
	Code          string         `db:"course_code" json:"course_code"`
	Name          string         `db:"course_name" json:"course_name"`
	Description   *string        `db:"description" json:"description,omitempty"`
	Credits       int            `db:"credits" json:"credits"`
	Department    string         `db:"department" json:"department"`
	Prerequisites pq.StringArray `db:"prerequisites" json:"prerequisites"`
	Capacity      int            `db:"max_capacity" json:"max_capacity"`
	Enrolled      int            `db:"current_enrollment" json:"current_enrollment"`
	ScheduleDays  string         `db:"schedule_days" json:"schedule_days"`
	ScheduleTime  string         `db:"schedule_time" json:"schedule_time"`
	Instructor    *string        `db:"instructor" json:"instructor,omitempty"`
	Semester      string         `db:"semester" json:"semester"`
	Year          int            `db:"year" json:"year"`
	Active        bool           `db:"is_active" json:"is_active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// AvailableSeats returns remaining capacity, never negative.
func (c Course) AvailableSeats() int {
	if c.Enrolled >= c.Capacity {
		return 0
	}
	return c.Capacity - c.Enrolled
}

// IsFull reports whether enrollment has reached capacity.
func (c Course) IsFull() bool {
	return c.Enrolled >= c.Capacity
}

// CourseView adds derived seat information for API responses.
type CourseView struct {
	Course
	AvailableSeats int  `json:"available_seats"`
	IsFull         bool `json:"is_full"`
}

// NewCourseView builds a CourseView.
func NewCourseView(c Course) CourseView {
	return CourseView{Course: c, AvailableSeats: c.AvailableSeats(), IsFull: c.IsFull()}
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Department string
	Semester   string
	Year       int
	Search     string
}

// CreateCourseRequest describes a new catalog entry.
type CreateCourseRequest struct {
	Code          string   `json:"course_code" validate:"required,max=20"`
	Name          string   `json:"course_name" validate:"required,max=200"`
	Description   *string  `json:"description"`
	Credits       int      `json:"credits" validate:"required,min=1,max=12"`
	Department    string   `json:"department" validate:"required,max=100"`
	Prerequisites []string `json:"prerequisites"`
	Capacity      int      `json:"max_capacity" validate:"required,min=1"`
	ScheduleDays  string   `json:"schedule_days" validate:"required,max=20"`
	ScheduleTime  string   `json:"schedule_time" validate:"required,max=20"`
	Instructor    *string  `json:"instructor" validate:"omitempty,max=100"`
	Semester      string   `json:"semester" validate:"required,max=20"`
	Year          int      `json:"year" validate:"required,min=2000,max=2100"`
}

// UpdateCourseRequest carries optional course edits; nil fields are left unchanged.
type UpdateCourseRequest struct {
	Name          *string  `json:"course_name" validate:"omitempty,max=200"`
	Description   *string  `json:"description"`
	Credits       *int     `json:"credits" validate:"omitempty,min=1,max=12"`
	Department    *string  `json:"department" validate:"omitempty,max=100"`
	Prerequisites []string `json:"prerequisites"`
	Capacity      *int     `json:"max_capacity"`
	ScheduleDays  *string  `json:"schedule_days" validate:"omitempty,max=20"`
	ScheduleTime  *string  `json:"schedule_time" validate:"omitempty,max=20"`
	Instructor    *string  `json:"instructor" validate:"omitempty,max=100"`
	Semester      *string  `json:"semester" validate:"omitempty,max=20"`
	Year          *int     `json:"year" validate:"omitempty,min=2000,max=2100"`
	Active        *bool    `json:"is_active"`
}

// ScheduleConflict pairs two courses that meet at the same time on a shared day.
type ScheduleConflict struct {
	First  CourseSlot `json:"course1"`
	Second CourseSlot `json:"course2"`
}

// CourseSlot identifies a course meeting pattern.
type CourseSlot struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
}

// ConflictCheckResult is returned by the schedule conflict check.
type ConflictCheckResult struct {
	HasConflicts bool               `json:"has_conflicts"`
	Conflicts    []ScheduleConflict `json:"conflicts"`
}

// CheckConflictsRequest lists the courses to compare.
type CheckConflictsRequest struct {
	CourseIDs []string `json:"course_ids" validate:"required,min=1,dive,required"`
}
