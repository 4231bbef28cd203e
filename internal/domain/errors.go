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

// Is reports whether target is a DomainError with the same code and message,
// so a sentinel still matches after a cause has been attached with Wrap.
func (e *DomainError) Is(target error) bool {
	de, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return de.Code == e.Code && de.Message == e.Message
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

// Wrap attaches cause to a copy of the sentinel base.
func Wrap(base *DomainError, cause error) *DomainError {
	return NewDomainErrorWithCause(base.Code, base.Message, cause)
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodePlanningUnavailable  = "PLANNING_UNAVAILABLE"
	ErrCodeEmptyCorpus          = "EMPTY_CORPUS"
	ErrCodeSummarization        = "SUMMARIZATION_FAILURE"
	ErrCodeMalformedCitation    = "MALFORMED_CITATION"
	ErrCodeInvalidRuleset       = "INVALID_RULESET"
	ErrCodeGenerationFailed     = "GENERATION_FAILED"
	ErrCodeCorpusLoadIncomplete = "CORPUS_LOAD_INCOMPLETE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrInvalidProvenance    = NewDomainError(ErrCodeValidation, "invalid provenance")
	ErrUnknownSpecialty     = NewDomainError(ErrCodeValidation, "unknown specialty")
	ErrInvalidSearchMode    = NewDomainError(ErrCodeValidation, "invalid search mode")
	ErrInvalidRuleset       = NewDomainError(ErrCodeInvalidRuleset, "invalid scoring ruleset")
)

// Not found errors
var (
	ErrKnowledgeNotFound = NewDomainError(ErrCodeNotFound, "knowledge item not found")
	ErrSessionNotFound   = NewDomainError(ErrCodeNotFound, "session not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Engine faults. All of them are recovered locally; none reaches the user.
var (
	ErrPlanningUnavailable  = NewDomainError(ErrCodePlanningUnavailable, "query planner unavailable")
	ErrEmptyCorpus          = NewDomainError(ErrCodeEmptyCorpus, "knowledge store is empty")
	ErrSummarizationFailure = NewDomainError(ErrCodeSummarization, "conversation summarization failed")
	ErrMalformedCitation    = NewDomainError(ErrCodeMalformedCitation, "citation index has no matching reference")
	ErrGenerationFailed     = NewDomainError(ErrCodeGenerationFailed, "answer generation failed")
)
