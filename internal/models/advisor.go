package models

import "time"

// AdvisorAssignment links a student to an advisor.
type AdvisorAssignment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	AdvisorID  string    `db:"advisor_id" json:"advisor_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// AdvisorAssignmentDetail joins both parties' names.
type AdvisorAssignmentDetail struct {
	AdvisorAssignment
	StudentName   string  `db:"student_name" json:"student_name"`
	StudentEmail  string  `db:"student_email" json:"student_email"`
	StudentNumber *string `db:"student_number" json:"student_number,omitempty"`
	AdvisorName   string  `db:"advisor_name" json:"advisor_name"`
	AdvisorEmail  string  `db:"advisor_email" json:"advisor_email"`
}

// AssignAdvisorRequest is sent by admins.
type AssignAdvisorRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	AdvisorID string `json:"advisor_id" validate:"required"`
}

// AdvisedStudent is a student row as seen by an advisor.
type AdvisedStudent struct {
	ID               string    `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	StudentNumber    *string   `db:"student_number" json:"student_number,omitempty"`
	Department       *string   `db:"department" json:"department,omitempty"`
	YearLevel        *int      `db:"year_level" json:"year_level,omitempty"`
	AssignedAt       time.Time `db:"assigned_at" json:"assigned_at"`
	PendingSelection int       `db:"pending_selections" json:"pending_selections"`
}

// AdvisorStatistics summarises an advisor's workload.
type AdvisorStatistics struct {
	Selections       SelectionStatusCounts `json:"selections"`
	AssignedStudents int                   `json:"assigned_students"`
}
