package models

import "time"

// NotificationCategory tags notifications by the event that produced them.
type NotificationCategory string

const (
	NotificationSelectionSubmitted NotificationCategory = "course_selection"
	NotificationSelectionReviewed  NotificationCategory = "course_review"
	NotificationAutoApproved       NotificationCategory = "course_approved"
	NotificationAdvisorAssigned    NotificationCategory = "advisor_assignment"
)

// Notification is an append-only message for a single user.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"message" json:"message"`
	Category  NotificationCategory `db:"type" json:"type"`
	Read      bool                 `db:"is_read" json:"is_read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
