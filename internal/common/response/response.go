package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request. FieldErrors and PageErrors are set only
// for validation failures.
type ErrorDetail struct {
	Code        string              `json:"code"`
	Message     string              `json:"message"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
	PageErrors  []string            `json:"page_errors,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 response for a request rejected before reaching a service.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Error: &ErrorDetail{Code: "bad_request", Message: message}})
}

// Error maps err onto a status code and error body.
func Error(c *gin.Context, err error) {
	status, detail := Describe(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, Envelope{Error: &detail})
}

// Describe returns the HTTP status and error body for err.
func Describe(err error) (int, ErrorDetail) {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		terminal    *domain.AlreadyTerminalError
		precond     *domain.PreconditionFailedError
		conflict    *domain.ConflictError
		invalid     *domain.InvalidStateError
		unavailable *domain.UnavailableError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, ErrorDetail{
			Code:        "validation_error",
			Message:     validation.Message,
			FieldErrors: validation.FieldErrors,
			PageErrors:  validation.PageErrors,
		}
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorDetail{Code: "not_found", Message: notFound.Error()}
	case errors.As(err, &terminal):
		return http.StatusConflict, ErrorDetail{Code: "already_terminal", Message: terminal.Error()}
	case errors.As(err, &precond):
		return http.StatusConflict, ErrorDetail{Code: "precondition_failed", Message: precond.Error()}
	case errors.As(err, &invalid):
		return http.StatusConflict, ErrorDetail{Code: "invalid_state", Message: invalid.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, ErrorDetail{Code: "conflict", Message: conflict.Error()}
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, ErrorDetail{Code: "unavailable", Message: "service temporarily unavailable"}
	default:
		return http.StatusInternalServerError, ErrorDetail{Code: "internal_error", Message: "internal server error"}
	}
}
