package models

import "time"

// ReportType enumerates admin report variants.
type ReportType string

const (
	ReportEnrollment      ReportType = "enrollment"
	ReportAdvisorActivity ReportType = "advisor_activity"
	ReportStudentProgress ReportType = "student_progress"
)

// EnrollmentReportRow is one course in the enrollment report.
type EnrollmentReportRow struct {
	CourseCode     string  `db:"course_code" json:"course_code"`
	CourseName     string  `db:"course_name" json:"course_name"`
	Department     string  `db:"department" json:"department"`
	Capacity       int     `db:"max_capacity" json:"max_capacity"`
	Enrolled       int     `db:"current_enrollment" json:"current_enrollment"`
	Pending        int     `db:"pending_count" json:"pending_count"`
	Approved       int     `db:"approved_count" json:"approved_count"`
	Rejected       int     `db:"rejected_count" json:"rejected_count"`
	UtilizationPct float64 `db:"utilization_pct" json:"utilization_pct"`
}

// AdvisorActivityRow is one advisor in the activity report.
type AdvisorActivityRow struct {
	AdvisorName      string     `db:"advisor_name" json:"advisor_name"`
	Email            string     `db:"email" json:"email"`
	AssignedStudents int        `db:"assigned_students" json:"assigned_students"`
	ReviewsCompleted int        `db:"reviews_completed" json:"reviews_completed"`
	Approvals        int        `db:"approvals" json:"approvals"`
	Rejections       int        `db:"rejections" json:"rejections"`
	LastReviewAt     *time.Time `db:"last_review_at" json:"last_review_at,omitempty"`
}

// StudentProgressRow is one student in the progress report.
type StudentProgressRow struct {
	StudentName     string  `db:"student_name" json:"student_name"`
	StudentNumber   *string `db:"student_number" json:"student_number,omitempty"`
	Department      *string `db:"department" json:"department,omitempty"`
	YearLevel       *int    `db:"year_level" json:"year_level,omitempty"`
	TotalSelections int     `db:"total_selections" json:"total_selections"`
	Approved        int     `db:"approved_courses" json:"approved_courses"`
	Pending         int     `db:"pending_courses" json:"pending_courses"`
	ApprovedCredits int     `db:"approved_credits" json:"approved_credits"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	Users              map[UserRole]int      `json:"users"`
	ActiveCourses      int                   `json:"active_courses"`
	Selections         SelectionStatusCounts `json:"selections"`
	TotalCapacity      int                   `json:"total_capacity"`
	TotalEnrollment    int                   `json:"total_enrollment"`
	UtilizationPercent float64               `json:"utilization_percent"`
	RecentActivity     []RecentActivity      `json:"recent_activity"`
	GeneratedAt        time.Time             `json:"generated_at"`
}

// RoleCount is a row of the users-by-role aggregate.
type RoleCount struct {
	Role  UserRole `db:"role"`
	Count int      `db:"count"`
}

// EnrollmentTotals aggregates capacity across active courses.
type EnrollmentTotals struct {
	ActiveCourses   int `db:"active_courses"`
	TotalCapacity   int `db:"total_capacity"`
	TotalEnrollment int `db:"total_enrollment"`
}

// RecentActivity is a recently changed selection.
type RecentActivity struct {
	SelectionID string          `db:"id" json:"selection_id"`
	StudentName string          `db:"student_name" json:"student_name"`
	CourseCode  string          `db:"course_code" json:"course_code"`
	Status      SelectionStatus `db:"status" json:"status"`
	ChangedAt   time.Time       `db:"changed_at" json:"changed_at"`
}

// SeatConflictCourse is a course flagged by the seat conflict report.
type SeatConflictCourse struct {
	ID       string `db:"id" json:"id"`
	Code     string `db:"course_code" json:"course_code"`
	Name     string `db:"course_name" json:"course_name"`
	Capacity int    `db:"max_capacity" json:"max_capacity"`
	Enrolled int    `db:"current_enrollment" json:"current_enrollment"`
	Pending  int    `db:"pending_count" json:"pending_count"`
}

// SeatConflictReport groups courses needing attention.
type SeatConflictReport struct {
	NearCapacity []SeatConflictCourse `json:"near_capacity"`
	Waitlisted   []SeatConflictCourse `json:"waitlist"`
}

// TimeSlotUsage counts active courses and their enrollment per meeting time.
type TimeSlotUsage struct {
	ScheduleTime  string `db:"schedule_time" json:"schedule_time"`
	CourseCount   int    `db:"course_count" json:"course_count"`
	TotalEnrolled int    `db:"total_enrolled" json:"total_enrolled"`
}

// DepartmentUtilization is the average seat fill of a department's active courses, in percent.
type DepartmentUtilization struct {
	Department     string  `db:"department" json:"department"`
	CourseCount    int     `db:"course_count" json:"course_count"`
	AvgUtilization float64 `db:"avg_utilization" json:"avg_utilization"`
}

// ScheduleStats summarizes how active courses use the timetable.
type ScheduleStats struct {
	TimeSlots   []TimeSlotUsage         `json:"time_slots"`
	Departments []DepartmentUtilization `json:"departments"`
	Conflicts   []ScheduleConflict      `json:"conflicts"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Seat conflict resolution actions.
const (
	ResolveIncreaseCapacity = "increase_capacity"
	ResolveManualSelection  = "manual_selection"
)

// ResolveConflictRequest is sent by admins to settle a seat conflict.
type ResolveConflictRequest struct {
	Action      string   `json:"action" validate:"required,oneof=increase_capacity manual_selection"`
	NewCapacity int      `json:"new_capacity"`
	StudentIDs  []string `json:"student_ids" validate:"omitempty,dive,required"`
}

// CapacityRequest sets a course capacity.
type CapacityRequest struct {
	Capacity int `json:"max_capacity" validate:"required"`
}

// ResolveConflictResult reports what a conflict resolution did.
type ResolveConflictResult struct {
	Action   string            `json:"action"`
	Capacity *CapacityResult   `json:"capacity,omitempty"`
	Review   *BulkReviewResult `json:"review,omitempty"`
}
