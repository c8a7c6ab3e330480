package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound                = errors.New("resource not found")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrMalformedAttributeBlob  = errors.New("malformed attribute blob")
	ErrInternal                = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %v not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidRequest creates a 400 error.
func InvalidRequest(message string) *AppError {
	return &AppError{
		Code:    "INVALID_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidRequest,
	}
}

// Unavailable creates a 503 error for a failed call to a collaborator. Errors
// that are already an AppError are returned unchanged so NotFound and friends
// survive the trip through a gateway.
func Unavailable(collaborator string, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{
		Code:    "COLLABORATOR_UNAVAILABLE",
		Message: collaborator + " is unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(ErrCollaboratorUnavailable, err),
	}
}

// MalformedBlob creates a 422 error for a spec blob that cannot be decoded.
func MalformedBlob(field string, spuID int64, err error) *AppError {
	return &AppError{
		Code:    "MALFORMED_ATTRIBUTE_BLOB",
		Message: fmt.Sprintf("%s of product %d cannot be decoded", field, spuID),
		Status:  http.StatusUnprocessableEntity,
		Err:     errors.Join(ErrMalformedAttributeBlob, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrInternal, err),
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMalformedAttributeBlob):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
