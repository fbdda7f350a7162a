package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDataLoadFailed  ErrorCode = "DATA_LOAD_FAILED"
	ErrCodeDataUnavailable ErrorCode = "DATA_UNAVAILABLE"

	ErrCodeEmptyExcerpt ErrorCode = "EMPTY_EXCERPT"

	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"

	ErrCodeEvalCasesInvalid ErrorCode = "EVAL_CASES_INVALID"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewDataLoadFailedError creates a non-retryable dataset load error.
// A malformed file is a setup problem, retrying will not fix it.
func NewDataLoadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataLoadFailed,
		Message:   "Failed to load sales dataset",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataUnavailableError creates a non-retryable error for an absent or
// empty dataset at query time. Fatal for the session.
func NewDataUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataUnavailable,
		Message:   "Sales dataset is not loaded or empty",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyExcerptError reports a violated retriever invariant: the fallback
// rule must guarantee a non-empty excerpt for any query.
func NewEmptyExcerptError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyExcerpt,
		Message:   "Retriever produced an empty excerpt",
		Details:   fmt.Sprintf("query: %q", query),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError creates a retryable answer generation error.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Answer generation call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationTimeoutError creates a retryable generation timeout error.
func NewGenerationTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "Answer generation call timed out",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEvalCasesInvalidError creates a non-retryable evaluation case file error.
func NewEvalCasesInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEvalCasesInvalid,
		Message:   "Evaluation cases failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Normalize converts any error into a StandardError, preserving one that is
// already structured.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf returns the structured code of err, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	return Normalize(err).Code
}

// IsRetryable reports whether err is a per-query recoverable failure.
func IsRetryable(err error) bool {
	return Normalize(err).Retryable
}

// GetRetryCount returns the pipeline-level retry budget for an error code.
// Generation failures get exactly one retry, everything else none.
var retryCounts = map[ErrorCode]int{
	ErrCodeGenerationFailed:  1,
	ErrCodeGenerationTimeout: 1,
}

func GetRetryCount(code ErrorCode) int {
	return retryCounts[code]
}
