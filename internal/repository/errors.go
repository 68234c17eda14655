package repository

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// ErrCapacityExceeded is returned when an enrollment increment would overshoot the course capacity.
var ErrCapacityExceeded = errors.New("enrollment would exceed capacity")

// IsUniqueViolation reports whether err originates from a Postgres unique constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
