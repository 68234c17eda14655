package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesPredefined(t *testing.T) {
	err := Clone(ErrCourseFull, "CS101 is full")

	assert.True(t, stdErrors.Is(err, ErrCourseFull))
	assert.False(t, stdErrors.Is(err, ErrNotFound))
	assert.Equal(t, "CS101 is full", err.Message)
	assert.Equal(t, "course is at maximum capacity", ErrCourseFull.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestFromErrorKeepsTyped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrForbidden, "nope"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrForbidden.Code, appErr.Code)
	assert.True(t, IsCode(wrapped, ErrForbidden.Code))
	assert.Nil(t, FromError(nil))
}
