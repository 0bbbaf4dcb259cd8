// Package errors provides structured error handling for indelve.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, index)
//   - 4XX: Validation errors (arguments, queries)
//   - 5XX: Internal errors (malformed provider output, failed operations)
//   - 6XX: Initialization concerns (provider loading)
//
// Warnings and errors are told apart by Severity. Both initialization codes
// share CategoryInit so callers can catch the whole family with IsInit.
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, disk and index I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates argument and query validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates defects, usually in provider code.
	CategoryInternal Category = "INTERNAL"
	// CategoryInit indicates provider loading concerns raised while an
	// orchestrator is being constructed.
	CategoryInit Category = "INIT"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeCorruptIndex   = "ERR_205_CORRUPT_INDEX"

	// Validation errors (400-499)
	ErrCodeInvalidInput    = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery    = "ERR_403_INVALID_QUERY"
	ErrCodeQueryEmpty      = "ERR_404_QUERY_EMPTY"
	ErrCodeInvalidArgument = "ERR_407_INVALID_ARGUMENT"

	// Internal errors (500-599)
	ErrCodeInternal             = "ERR_501_INTERNAL"
	ErrCodeSearchFailed         = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed          = "ERR_505_INDEX_FAILED"
	ErrCodeMalformedDescription = "ERR_506_MALFORMED_DESCRIPTION"
	ErrCodeMalformedItem        = "ERR_507_MALFORMED_ITEM"

	// Initialization concerns (600-699)
	ErrCodeProviderLoad = "ERR_601_PROVIDER_LOAD"
	ErrCodeNoProviders  = "ERR_602_NO_PROVIDERS"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	case '6':
		return CategoryInit
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeNoProviders, ErrCodeCorruptIndex:
		return SeverityFatal
	case ErrCodeProviderLoad, ErrCodeInvalidInput:
		// Skipped provider at load time, inapplicable query at search time.
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Only index locking contention is retryable today.
func isRetryableCode(code string) bool {
	return code == ErrCodeFilePermission
}
