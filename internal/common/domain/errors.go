package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports a malformed or incomplete request. Field errors are keyed by
// request field name; page errors apply to the request as a whole.
type ValidationError struct {
	Message     string
	FieldErrors map[string][]string
	PageErrors  []string
}

// NewValidationError creates a ValidationError carrying a single page-level message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		Message:     message,
		FieldErrors: map[string][]string{},
		PageErrors:  []string{message},
	}
}

// NewFieldValidationError creates an empty ValidationError to which field errors can be added.
func NewFieldValidationError(message string) *ValidationError {
	return &ValidationError{
		Message:     message,
		FieldErrors: map[string][]string{},
	}
}

// AddFieldError records a message against the named field.
func (e *ValidationError) AddFieldError(field, message string) {
	if e.FieldErrors == nil {
		e.FieldErrors = map[string][]string{}
	}
	e.FieldErrors[field] = append(e.FieldErrors[field], message)
}

// AddPageError records a request-level message.
func (e *ValidationError) AddPageError(message string) {
	e.PageErrors = append(e.PageErrors, message)
}

// HasErrors returns true if any field or page error was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.FieldErrors) > 0 || len(e.PageErrors) > 0
}

// Messages flattens page errors followed by field errors (fields in name order).
func (e *ValidationError) Messages() []string {
	msgs := append([]string{}, e.PageErrors...)
	fields := make([]string, 0, len(e.FieldErrors))
	for f := range e.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		msgs = append(msgs, e.FieldErrors[f]...)
	}
	return msgs
}

func (e *ValidationError) Error() string {
	msgs := e.Messages()
	if len(msgs) == 0 || (len(msgs) == 1 && msgs[0] == e.Message) {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Message, strings.Join(msgs, "; "))
}

// NotFoundError reports a reference to a resource that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a NotFoundError for the given resource kind and identifier.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// AlreadyTerminalError reports an attempt to transition a booking that has already
// reached a terminal status.
type AlreadyTerminalError struct {
	ID     string
	Status string
}

// NewAlreadyTerminalError creates an AlreadyTerminalError.
func NewAlreadyTerminalError(id, status string) *AlreadyTerminalError {
	return &AlreadyTerminalError{ID: id, Status: status}
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("booking %s is already %s", e.ID, e.Status)
}

// PreconditionFailedError reports a compare-and-set status transition whose expected
// current status did not match the stored one.
type PreconditionFailedError struct {
	ID       string
	Expected string
	Actual   string
}

// NewPreconditionFailedError creates a PreconditionFailedError.
func NewPreconditionFailedError(id, expected, actual string) *PreconditionFailedError {
	return &PreconditionFailedError{ID: id, Expected: expected, Actual: actual}
}

func (e *PreconditionFailedError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("precondition failed for %s: expected status %s", e.ID, e.Expected)
	}
	return fmt.Sprintf("precondition failed for %s: expected status %s, found %s", e.ID, e.Expected, e.Actual)
}

// InvalidStateError reports a state machine transition that is not allowed.
type InvalidStateError struct {
	From string
	To   string
}

// NewInvalidStateError creates an InvalidStateError.
func NewInvalidStateError(from, to string) *InvalidStateError {
	return &InvalidStateError{From: from, To: to}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ConflictError reports a concurrent modification or duplicate key.
type ConflictError struct {
	Message string
}

// NewConflictError creates a ConflictError.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

// UnavailableError wraps a transient infrastructure failure (database, network).
type UnavailableError struct {
	Op  string
	Err error
}

// NewUnavailableError wraps err as an UnavailableError for the named operation.
func NewUnavailableError(op string, err error) *UnavailableError {
	return &UnavailableError{Op: op, Err: err}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsPreconditionFailed reports whether err is or wraps a PreconditionFailedError.
func IsPreconditionFailed(err error) bool {
	var pf *PreconditionFailedError
	return errors.As(err, &pf)
}

// IsUnavailable reports whether err is or wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
