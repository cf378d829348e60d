package domain

import (
	"fmt"
	"strings"
	"time"
)

// ManifestError represents a standardized error response
type ManifestError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *ManifestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrMalformedRecord        = "MALFORMED_RECORD"
	ErrIncompleteCohortSource = "INCOMPLETE_COHORT_SOURCE"
	ErrCatalogFetch           = "CATALOG_FETCH_ERROR"
	ErrValidation             = "VALIDATION_ERROR"
	ErrStore                  = "STORE_ERROR"
	ErrNotFound               = "NOT_FOUND"
	ErrInternal               = "INTERNAL_ERROR"
)

// NewManifestError creates a new ManifestError with timestamp
func NewManifestError(code, message, details, requestID string) *ManifestError {
	return &ManifestError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// MalformedRecordError reports a catalog record without its patient join key.
type MalformedRecordError struct {
	Modality Modality `json:"modality"`
	Index    int      `json:"index"`
	FileID   string   `json:"file_id,omitempty"`
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	if e.FileID != "" {
		return fmt.Sprintf("malformed %s record %d (file %s): missing patient id", e.Modality, e.Index, e.FileID)
	}
	return fmt.Sprintf("malformed %s record %d: missing patient id", e.Modality, e.Index)
}

// IncompleteCohortSourceError reports that fewer than all required modality
// indices could be constructed. No partial manifest accompanies it.
type IncompleteCohortSourceError struct {
	Missing []Modality `json:"missing"`
	Cause   error      `json:"-"`
}

// Error implements the error interface
func (e *IncompleteCohortSourceError) Error() string {
	tags := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		tags[i] = string(m)
	}
	msg := fmt.Sprintf("incomplete cohort source: missing modality index for %s", strings.Join(tags, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the failure that prevented the index from being built.
func (e *IncompleteCohortSourceError) Unwrap() error {
	return e.Cause
}

// ValidationError represents configuration or request validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
