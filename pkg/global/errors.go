package global

import (
	"errors"
	"net/http"
)

// AppError is an error that already knows its HTTP status.
type AppError struct {
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: message}
}

func NotAcceptable(message string) *AppError {
	return &AppError{Status: http.StatusNotAcceptable, Message: message}
}

func BadRequest(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message}
}

// Unprocessable reports semantic validation failures keyed by field.
func Unprocessable(message string, fields map[string]string) *AppError {
	return &AppError{Status: http.StatusUnprocessableEntity, Message: message, Fields: fields}
}

// Internal surfaces an upstream failure; the upstream message is kept.
func Internal(message string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
