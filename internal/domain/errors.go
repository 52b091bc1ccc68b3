package domain

import (
	"errors"
	"fmt"
	"time"
)

// Hard validation failures. All are raised synchronously before any partial
// computation is returned; callers never receive a half-built assessment.
var (
	// ErrOutOfRangeWeek rejects gestational weeks outside [1, 40].
	ErrOutOfRangeWeek = errors.New("gestational week out of range (1-40)")

	// ErrEmptyMedicationList rejects composite calculation with no medications.
	ErrEmptyMedicationList = errors.New("medication list must not be empty")

	// ErrUnknownCondition rejects maternal condition names with no profile.
	ErrUnknownCondition = errors.New("unknown maternal condition")

	// ErrInvalidCategory marks a reference data integrity violation: a
	// medication record carries a category outside {A,B,C,D,X,N}. This is
	// a data-loading defect, not a user input error.
	ErrInvalidCategory = errors.New("medication record has invalid FDA category")
)

// Error codes for API responses
const (
	CodeOutOfRangeWeek      = "OUT_OF_RANGE_WEEK"
	CodeEmptyMedicationList = "EMPTY_MEDICATION_LIST"
	CodeUnknownCondition    = "UNKNOWN_CONDITION"
	CodeInvalidCategory     = "INVALID_CATEGORY"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeRateLimit           = "RATE_LIMIT_EXCEEDED"
	CodeInternalServer      = "INTERNAL_SERVER_ERROR"
)

// APIError represents a standardized error response at the HTTP edge.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// CodeForError maps core validation errors to stable API error codes.
func CodeForError(err error) string {
	switch {
	case errors.Is(err, ErrOutOfRangeWeek):
		return CodeOutOfRangeWeek
	case errors.Is(err, ErrEmptyMedicationList):
		return CodeEmptyMedicationList
	case errors.Is(err, ErrUnknownCondition):
		return CodeUnknownCondition
	case errors.Is(err, ErrInvalidCategory):
		return CodeInvalidCategory
	default:
		return CodeInternalServer
	}
}

// IsValidationError reports whether the error is one of the hard input
// validation failures (as opposed to an infrastructure failure).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrOutOfRangeWeek) ||
		errors.Is(err, ErrEmptyMedicationList) ||
		errors.Is(err, ErrUnknownCondition)
}
