package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleAdvisor UserRole = "ADVISOR"
	RoleAdmin   UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleAdvisor, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Role          UserRole  `db:"role" json:"role"`
	StudentNumber *string   `db:"student_number" json:"student_number,omitempty"`
	Department    *string   `db:"department" json:"department,omitempty"`
	YearLevel     *int      `db:"year_level" json:"year_level,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       UserRole
	Department string
	Search     string
	Page       int
	PageSize   int
}

// UserPatch carries optional admin edits; nil fields are left unchanged.
type UserPatch struct {
	FirstName  *string   `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string   `json:"last_name" validate:"omitempty,min=1,max=100"`
	Role       *UserRole `json:"role" validate:"omitempty,oneof=STUDENT ADVISOR ADMIN"`
	Department *string   `json:"department" validate:"omitempty,max=100"`
	YearLevel  *int      `json:"year_level" validate:"omitempty,min=1,max=10"`
}

// UpdateProfileRequest carries self-service profile edits; nil fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	YearLevel  *int    `json:"year_level" validate:"omitempty,min=1,max=10"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page count for the given totals.
func NewPagination(page, size, total int) *Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}
