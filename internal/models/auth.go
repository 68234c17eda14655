package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates an account. Admin-created users share the same payload.
type RegisterRequest struct {
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"required,min=6"`
	FirstName     string   `json:"first_name" validate:"required,max=100"`
	LastName      string   `json:"last_name" validate:"required,max=100"`
	Role          UserRole `json:"role" validate:"required"`
	StudentNumber *string  `json:"student_number" validate:"omitempty,max=20"`
	Department    *string  `json:"department" validate:"omitempty,max=100"`
	YearLevel     *int     `json:"year_level" validate:"omitempty,min=1,max=10"`
}

// AuthResponse returns the issued token and user info.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Role       UserRole `json:"role"`
	Department *string  `json:"department,omitempty"`
}

// NewUserInfo projects a user for API responses.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role, Department: u.Department}
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// Actor is the verified identity performing an operation.
type Actor struct {
	UserID string
	Role   UserRole
}

// IsAdmin reports whether the actor bypasses advisor scoping.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActorFromClaims converts token claims into an Actor.
func ActorFromClaims(c *JWTClaims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Role: c.Role}
}
