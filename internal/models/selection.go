package models

import "time"

// SelectionStatus is the lifecycle state of a course selection.
type SelectionStatus string

const (
	SelectionPending    SelectionStatus = "pending"
	SelectionApproved   SelectionStatus = "approved"
	SelectionRejected   SelectionStatus = "rejected"
	SelectionWaitlisted SelectionStatus = "waitlisted"
)

// ReviewDecision is the outcome an advisor may choose for a pending selection.
type ReviewDecision string

const (
	DecisionApproved ReviewDecision = "approved"
	DecisionRejected ReviewDecision = "rejected"
)

// Status maps the decision onto the resulting selection status.
func (d ReviewDecision) Status() SelectionStatus {
	if d == DecisionApproved {
		return SelectionApproved
	}
	return SelectionRejected
}

// Selection is a student's request to enroll in a course.
type Selection struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	CourseID   string          `db:"course_id" json:"course_id"`
	Status     SelectionStatus `db:"status" json:"status"`
	AdvisorID  *string         `db:"advisor_id" json:"advisor_id,omitempty"`
	Comment    *string         `db:"advisor_comments" json:"advisor_comments,omitempty"`
	Priority   int             `db:"priority" json:"priority"`
	SelectedAt time.Time       `db:"selected_at" json:"selected_at"`
	ReviewedAt *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// SelectionDetail joins a selection with its course and student for listings.
type SelectionDetail struct {
	Selection
	CourseCode    string  `db:"course_code" json:"course_code"`
	CourseName    string  `db:"course_name" json:"course_name"`
	Credits       int     `db:"credits" json:"credits"`
	Department    string  `db:"department" json:"department"`
	ScheduleDays  string  `db:"schedule_days" json:"schedule_days"`
	ScheduleTime  string  `db:"schedule_time" json:"schedule_time"`
	Instructor    *string `db:"instructor" json:"instructor,omitempty"`
	StudentName   string  `db:"student_name" json:"student_name"`
	StudentEmail  string  `db:"student_email" json:"student_email"`
	StudentNumber *string `db:"student_number" json:"student_number,omitempty"`
	AdvisorName   *string `db:"advisor_name" json:"advisor_name,omitempty"`
}

// SelectionReview is the write applied by a review or an auto-approval.
type SelectionReview struct {
	ID         string          `db:"id"`
	Status     SelectionStatus `db:"status"`
	AdvisorID  *string         `db:"advisor_id"`
	Comment    *string         `db:"advisor_comments"`
	ReviewedAt time.Time       `db:"reviewed_at"`
}

// CreateSelectionRequest is submitted by a student.
type CreateSelectionRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Priority int    `json:"priority" validate:"omitempty,min=1"`
}

// ReviewSelectionRequest carries an advisor decision.
type ReviewSelectionRequest struct {
	Decision ReviewDecision `json:"status" validate:"required,oneof=approved rejected"`
	Comment  string         `json:"comments" validate:"max=1000"`
}

// BulkReviewRequest applies one decision to many selections.
type BulkReviewRequest struct {
	SelectionIDs []string       `json:"selection_ids" validate:"required,min=1,dive,required"`
	Decision     ReviewDecision `json:"status" validate:"required,oneof=approved rejected"`
	Comment      string         `json:"comments" validate:"max=1000"`
}

// UpdatePriorityRequest changes a pending selection's priority.
type UpdatePriorityRequest struct {
	Priority int `json:"priority" validate:"required,min=1"`
}

// SkippedSelection records why a bulk review left a selection untouched.
type SkippedSelection struct {
	SelectionID string `json:"selection_id"`
	Code        string `json:"code"`
	Reason      string `json:"reason"`
}

// BulkReviewResult summarises a bulk review.
type BulkReviewResult struct {
	Requested int                `json:"requested"`
	Succeeded int                `json:"succeeded"`
	Skipped   []SkippedSelection `json:"skipped"`
}

// CapacityResult is returned after a capacity change.
type CapacityResult struct {
	Course       CourseView `json:"course"`
	AutoApproved int        `json:"auto_approved"`
	ApprovedIDs  []string   `json:"approved_selection_ids"`
}

// SelectionStatusCounts aggregates selections by status.
type SelectionStatusCounts struct {
	Pending    int `db:"pending" json:"pending"`
	Approved   int `db:"approved" json:"approved"`
	Rejected   int `db:"rejected" json:"rejected"`
	Waitlisted int `db:"waitlisted" json:"waitlisted"`
}

// Total returns the sum of all statuses.
func (c SelectionStatusCounts) Total() int {
	return c.Pending + c.Approved + c.Rejected + c.Waitlisted
}
