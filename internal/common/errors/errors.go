// Package errors provides the standardized error taxonomy shared by the HTTP
// API, the batch runner and the job worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeModelUnavailable    ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeDriftLogWriteFailed ErrorCode = "DRIFT_LOG_WRITE_FAILED"
	ErrCodeBatchRecordInvalid  ErrorCode = "BATCH_RECORD_INVALID"
	ErrCodeTrackingStoreFailed ErrorCode = "TRACKING_STORE_FAILED"
	ErrCodeNotificationFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeRequestTooLarge     ErrorCode = "REQUEST_TOO_LARGE"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// FieldError is a single field-level validation problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Fields    []FieldError           `json:"errors,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewValidationError creates a non-retryable client error with field detail.
func NewValidationError(fields []FieldError) *StandardError {
	details := ""
	if len(fields) > 0 {
		details = fmt.Sprintf("%s: %s", fields[0].Field, fields[0].Message)
		if len(fields) > 1 {
			details = fmt.Sprintf("%s (and %d more)", details, len(fields)-1)
		}
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelUnavailableError signals a missing trained model or artifact store.
func NewModelUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelUnavailable,
		Message:   "Model not loaded. Train a model first with `credit-cli train`",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDriftLogWriteFailedError is only ever logged, never returned to a caller.
func NewDriftLogWriteFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDriftLogWriteFailed,
		Message:   "Failed to log input sample",
		Details:   fmt.Sprintf("sink: %s, error: %s", sink, errDetails(err)),
		Retryable: true,
		Metadata:  map[string]interface{}{"sink": sink},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewBatchRecordInvalidError reports a malformed batch input line.
func NewBatchRecordInvalidError(line int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBatchRecordInvalid,
		Message:   "Malformed batch record",
		Details:   fmt.Sprintf("line %d: %s", line, errDetails(err)),
		Retryable: false,
		Metadata:  map[string]interface{}{"line": line},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTrackingStoreFailedError wraps experiment-tracking store failures.
func NewTrackingStoreFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTrackingStoreFailed,
		Message:   "Experiment tracking store error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errDetails(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationFailedError wraps notifier publish failures.
func NewNotificationFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Notification send failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, errDetails(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewRequestTooLargeError(limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestTooLarge,
		Message:   "Request body too large",
		Details:   fmt.Sprintf("limit: %d bytes", limit),
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps any unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus maps an error code to the response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeBatchRecordInvalid:
		return http.StatusUnprocessableEntity
	case ErrCodeModelUnavailable, ErrCodeTrackingStoreFailed:
		return http.StatusServiceUnavailable
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeNotificationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}
