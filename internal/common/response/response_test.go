package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
)

func TestDescribe(t *testing.T) {
	verr := domain.NewFieldValidationError("invalid booking")
	verr.AddFieldError("end_date", "end date must be on or after start date")

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", verr, http.StatusUnprocessableEntity, "validation_error"},
		{"not found", fmt.Errorf("cancel: %w", domain.NewNotFoundError("Booking", "b1")), http.StatusNotFound, "not_found"},
		{"terminal", domain.NewAlreadyTerminalError("b1", "cancelled"), http.StatusConflict, "already_terminal"},
		{"precondition", domain.NewPreconditionFailedError("b1", "active", "expired"), http.StatusConflict, "precondition_failed"},
		{"conflict", domain.NewConflictError("duplicate"), http.StatusConflict, "conflict"},
		{"unavailable", domain.NewUnavailableError("insert", errors.New("dial tcp")), http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, detail := Describe(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, detail.Code)
		})
	}
}

func TestDescribe_ValidationCarriesFieldAndPageErrors(t *testing.T) {
	verr := domain.NewValidationError("missing fields")

	_, detail := Describe(verr)

	assert.Equal(t, []string{"missing fields"}, detail.PageErrors)
	assert.Empty(t, detail.FieldErrors)
}

func TestDescribe_UnavailableHidesCause(t *testing.T) {
	_, detail := Describe(domain.NewUnavailableError("insert", errors.New("password authentication failed")))

	assert.NotContains(t, detail.Message, "password")
}
