package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches sentinel domain errors by code and message so wrapped copies
// created with NewDomainErrorWithCause still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost DomainError in err's chain, or ""
// when err carries none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeConflict         = "CONFLICT"
)

// Pipeline error codes
const (
	ErrCodeEmbeddingFailure          = "EMBEDDING_FAILURE"
	ErrCodeSearchPipelineFailure     = "SEARCH_PIPELINE_FAILURE"
	ErrCodeSummarizationParseFailure = "SUMMARIZATION_PARSE_FAILURE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidMemberStatus  = NewDomainError(ErrCodeValidation, "invalid membership status")
	ErrQueryTooShort        = NewDomainError(ErrCodeValidation, "query must be at least 3 characters")
	ErrWorkspaceRequired    = NewDomainError(ErrCodeValidation, "workspace_id is required")
	ErrEmptyContent         = NewDomainError(ErrCodeValidation, "profile content cannot be empty")
)

// Not found errors
var (
	ErrProfileNotFound    = NewDomainError(ErrCodeNotFound, "profile not found")
	ErrWorkspaceNotFound  = NewDomainError(ErrCodeNotFound, "workspace not found")
	ErrMembershipNotFound = NewDomainError(ErrCodeNotFound, "membership not found")
	ErrAPIKeyNotFound     = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrProfileAlreadyExists    = NewDomainError(ErrCodeAlreadyExists, "profile already exists")
	ErrWorkspaceAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "workspace already exists")
	ErrMembershipAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "membership already exists")
	ErrAPIKeyAlreadyExists     = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// ErrProfileContentConflict means the stored content changed while a write
// was being prepared. The caller should reload and retry.
var ErrProfileContentConflict = NewDomainError(ErrCodeConflict, "profile content changed concurrently")

// Authorization errors
var (
	ErrAPIKeyRevoked      = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey      = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrNotWorkspaceMember = NewDomainError(ErrCodeForbidden, "not an active member of this workspace")
)

// Pipeline errors. Messages are safe to show to callers; causes are not.
var (
	ErrEmbeddingFailure          = NewDomainError(ErrCodeEmbeddingFailure, "embedding generation failed")
	ErrSearchPipelineFailure     = NewDomainError(ErrCodeSearchPipelineFailure, "search failed")
	ErrSummarizationParseFailure = NewDomainError(ErrCodeSummarizationParseFailure, "could not parse summarization output")
)
