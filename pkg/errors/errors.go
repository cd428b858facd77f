package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidDuration    ErrorCode = "INVALID_DURATION"
	ErrCodeNotEntitled        ErrorCode = "NOT_ENTITLED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeStoreUnavailable   ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// AppError is an error that carries a code, a message safe to show to the
// user and whether the caller may retry.
type AppError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
	Context   map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message)
}

func NewInvalidDurationError(message string) *AppError {
	return NewAppError(ErrCodeInvalidDuration, message)
}

func NewNotEntitledError(message string) *AppError {
	return NewAppError(ErrCodeNotEntitled, message)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message)
}

func NewRateLimitError() *AppError {
	e := NewAppError(ErrCodeRateLimit, "too many requests, slow down")
	e.Retryable = true
	return e
}

func NewStoreUnavailableError(err error) *AppError {
	e := WrapError(err, ErrCodeStoreUnavailable, "storage is temporarily unavailable, please try again")
	e.Retryable = true
	return e
}

func NewNotificationFailedError(err error) *AppError {
	return WrapError(err, ErrCodeNotificationFailed, "could not deliver the notification")
}

func NewInternalError(err error) *AppError {
	return WrapError(err, ErrCodeInternal, "something went wrong")
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}
