package errors

import (
	stderrors "errors"
	"fmt"
)

// IndelveError is the structured error type for indelve.
// It provides rich context for error handling, logging, and user presentation.
type IndelveError struct {
	// Code is the unique error code (e.g., "ERR_602_NO_PROVIDERS").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Init, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *IndelveError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndelveError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with sentinel IndelveErrors.
func (e *IndelveError) Is(target error) bool {
	if t, ok := target.(*IndelveError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *IndelveError) WithDetail(key, value string) *IndelveError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *IndelveError) WithSuggestion(suggestion string) *IndelveError {
	e.Suggestion = suggestion
	return e
}

// New creates a new IndelveError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *IndelveError {
	return &IndelveError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an IndelveError from an existing error.
// The error's message becomes the IndelveError message.
func Wrap(code string, err error) *IndelveError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is matching. They carry no details and must not be
// mutated; build a fresh error with New to attach context.
var (
	ErrInvalidInput         = New(ErrCodeInvalidInput, "query is not applicable", nil)
	ErrQueryEmpty           = New(ErrCodeQueryEmpty, "query must not be empty", nil)
	ErrInvalidArgument      = New(ErrCodeInvalidArgument, "invalid argument", nil)
	ErrMalformedDescription = New(ErrCodeMalformedDescription, "malformed provider description", nil)
	ErrMalformedItem        = New(ErrCodeMalformedItem, "malformed item", nil)
	ErrProviderLoad         = New(ErrCodeProviderLoad, "provider could not be loaded", nil)
	ErrNoProviders          = New(ErrCodeNoProviders, "no providers available", nil)
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *IndelveError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *IndelveError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates an argument validation error.
func ValidationError(message string, cause error) *IndelveError {
	return New(ErrCodeInvalidArgument, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *IndelveError {
	return New(ErrCodeInternal, message, cause)
}

// ProviderLoadWarning creates the warning recorded when a provider is
// unknown or unavailable at load time.
func ProviderLoadWarning(provider string, cause error) *IndelveError {
	msg := fmt.Sprintf("provider %q could not be loaded", provider)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return New(ErrCodeProviderLoad, msg, cause).WithDetail("provider", provider)
}

// NoProvidersError creates the fatal initialization error returned when no
// provider could be loaded.
func NoProvidersError(cause error) *IndelveError {
	return New(ErrCodeNoProviders, "no providers available", cause).
		WithSuggestion("Run 'indelve providers' to list known providers and check the providers setting")
}

// as extracts an IndelveError from anywhere in the chain.
func as(err error) (*IndelveError, bool) {
	var ie *IndelveError
	if err == nil || !stderrors.As(err, &ie) {
		return nil, false
	}
	return ie, true
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain holds an IndelveError with Retryable set.
func IsRetryable(err error) bool {
	ie, ok := as(err)
	return ok && ie.Retryable
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	ie, ok := as(err)
	return ok && ie.Severity == SeverityFatal
}

// IsWarning reports whether err is a warning-class concern.
func IsWarning(err error) bool {
	ie, ok := as(err)
	return ok && ie.Severity == SeverityWarning
}

// IsInit reports whether err belongs to the initialization family, warnings
// and fatal errors alike.
func IsInit(err error) bool {
	ie, ok := as(err)
	return ok && ie.Category == CategoryInit
}

// GetCode extracts the error code from an IndelveError.
// Returns empty string if not an IndelveError.
func GetCode(err error) string {
	if ie, ok := as(err); ok {
		return ie.Code
	}
	return ""
}

// GetCategory extracts the category from an IndelveError.
// Returns empty string if not an IndelveError.
func GetCategory(err error) Category {
	if ie, ok := as(err); ok {
		return ie.Category
	}
	return ""
}
