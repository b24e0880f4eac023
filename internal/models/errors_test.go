package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Status(t *testing.T) {
	assert.Equal(t, 404, NewNotFoundError("Listing", 1).Status())
	assert.Equal(t, 403, NewForbiddenError("no").Status())
	assert.Equal(t, 400, NewConflictError("dup").Status())
	assert.Equal(t, 400, NewValidationError("bad").Status())
	assert.Equal(t, 400, NewInvalidOperationError("nope").Status())
	assert.Equal(t, 401, NewUnauthorizedError("who").Status())
	assert.Equal(t, 500, NewInternalError(errors.New("boom")).Status())
}

func TestHasCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("toggle: %w", NewConflictError("already exists"))
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}
