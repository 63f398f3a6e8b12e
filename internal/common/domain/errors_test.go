package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Messages(t *testing.T) {
	verr := NewFieldValidationError("invalid booking")
	verr.AddFieldError("start_date", "start date must be a valid date")
	verr.AddFieldError("end_date", "end date must not be before start date")
	verr.AddPageError("please correct the errors below")

	assert.True(t, verr.HasErrors())
	assert.Equal(t, []string{
		"please correct the errors below",
		"end date must not be before start date",
		"start date must be a valid date",
	}, verr.Messages())
	assert.Contains(t, verr.Error(), "invalid booking")
}

func TestValidationError_PageOnly(t *testing.T) {
	verr := NewValidationError("missing fields")

	assert.True(t, verr.HasErrors())
	assert.Empty(t, verr.FieldErrors)
	assert.Equal(t, "validation error: missing fields", verr.Error())
}

func TestErrorPredicates_SeeThroughWrapping(t *testing.T) {
	nf := fmt.Errorf("get booking: %w", NewNotFoundError("Booking", "b1"))
	pf := fmt.Errorf("transition: %w", NewPreconditionFailedError("b1", "active", "cancelled"))
	un := fmt.Errorf("list: %w", NewUnavailableError("list", errors.New("connection refused")))

	assert.True(t, IsNotFound(nf))
	assert.False(t, IsNotFound(pf))
	assert.True(t, IsPreconditionFailed(pf))
	assert.True(t, IsUnavailable(un))
	assert.EqualError(t, errors.Unwrap(errors.Unwrap(un)), "connection refused")
}
