package errors

import (
	stderrors "errors"
	"fmt"
)

// DocError is the structured error type for docsearch.
// It provides rich context for error handling, logging, and user presentation.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_201_DOCUMENT_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is matches another DocError by code, so errors.Is(err, ErrNotFound) works
// for any not-found error regardless of message.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocError) WithSuggestion(suggestion string) *DocError {
	e.Suggestion = suggestion
	return e
}

// Sentinels for errors.Is comparisons. They carry only a code.
var (
	ErrNotFound   = &DocError{Code: ErrCodeDocumentNotFound}
	ErrProvider   = &DocError{Code: ErrCodeEmbeddingFailed}
	ErrStore      = &DocError{Code: ErrCodeStoreFailed}
	ErrValidation = &DocError{Code: ErrCodeInvalidInput}
)

// New creates a new DocError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a DocError from an existing error.
// The error's message becomes the DocError message.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotFoundError reports a document missing from the document store.
func NotFoundError(id string) *DocError {
	return New(ErrCodeDocumentNotFound, fmt.Sprintf("document %q not found", id), nil).
		WithDetail("document_id", id)
}

// ProviderError reports an embedding computation failure.
func ProviderError(message string, cause error) *DocError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// StoreError reports an index or document store I/O failure.
func StoreError(message string, cause error) *DocError {
	return New(ErrCodeStoreFailed, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *DocError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocError {
	return New(ErrCodeInternal, message, cause)
}

// IsNotFound reports whether err is (or wraps) a not-found error.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsProvider reports whether err is (or wraps) an embedding provider error,
// including provider initialisation failures.
func IsProvider(err error) bool {
	var de *DocError
	if !stderrors.As(err, &de) {
		return false
	}
	for ; de != nil; de = nextDocError(de) {
		if de.Code == ErrCodeEmbeddingFailed || de.Code == ErrCodeProviderInit {
			return true
		}
	}
	return false
}

// IsStore reports whether err is (or wraps) a store failure. Not-found and
// maintenance-lock errors share the storage code range but are not failures.
func IsStore(err error) bool {
	var de *DocError
	if !stderrors.As(err, &de) {
		return false
	}
	for ; de != nil; de = nextDocError(de) {
		if de.Code == ErrCodeStoreFailed || de.Code == ErrCodeCorruptIndex {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a caller validation error.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var de *DocError
	if stderrors.As(err, &de) {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the outermost DocError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var de *DocError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from the outermost DocError in the chain.
func GetCategory(err error) Category {
	var de *DocError
	if stderrors.As(err, &de) {
		return de.Category
	}
	return ""
}

func nextDocError(de *DocError) *DocError {
	var next *DocError
	if de.Cause != nil && stderrors.As(de.Cause, &next) {
		return next
	}
	return nil
}
