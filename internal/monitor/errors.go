package monitor

import (
	"errors"
	"fmt"
)

// Common monitor errors
var (
	ErrExtractionEmpty = errors.New("no review results extracted")
	ErrNoReviews       = errors.New("results table has no review rows")
)

// ErrorCode classifies a failure by how the run degrades around it.
type ErrorCode string

const (
	// CodeTransientPage covers timeouts and missing elements; retried once
	// by re-navigating.
	CodeTransientPage ErrorCode = "TRANSIENT_PAGE"
	// CodePersistence covers state file read/write failures; never fatal.
	CodePersistence ErrorCode = "PERSISTENCE"
	// CodeNotification covers push delivery failures; never retried in a run.
	CodeNotification ErrorCode = "NOTIFICATION"
	// CodeFatal is anything unexpected; the run stops and cleanup still runs.
	CodeFatal ErrorCode = "FATAL"
)

// MonitorError wraps errors with additional context
type MonitorError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *MonitorError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MonitorError) Unwrap() error {
	return e.Underlying
}

// Is matches another MonitorError by code, or the underlying error.
func (e *MonitorError) Is(target error) bool {
	if t, ok := target.(*MonitorError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewMonitorError creates a new MonitorError
func NewMonitorError(code ErrorCode, message string, err error) *MonitorError {
	return &MonitorError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithRetry marks the error as retryable
func (e *MonitorError) WithRetry() *MonitorError {
	e.Retry = true
	return e
}

// Retryable lets retry.Do stop early on errors not marked WithRetry.
func (e *MonitorError) Retryable() bool {
	return e.Retry
}

// WithDetail adds a detail to the error
func (e *MonitorError) WithDetail(key string, value interface{}) *MonitorError {
	e.Details[key] = value
	return e
}

// IsCode reports whether err is a MonitorError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var me *MonitorError
	return errors.As(err, &me) && me.Code == code
}
