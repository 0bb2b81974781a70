package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Configuration errors
	ErrInputNotFound        = errors.New("input dataset not found")
	ErrLookupTableMissing   = errors.New("lookup table missing")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnsupportedFormat    = errors.New("unsupported format")

	// Precondition errors
	ErrMissingUniqueness     = errors.New("uniqueness column is missing: annotate the dataset before suppression")
	ErrEmptyQuasiIdentifiers = errors.New("quasi-identifier set is empty")
	ErrUnknownColumn         = errors.New("unknown column")

	// Data errors
	ErrEmptyDataset    = errors.New("dataset contains no rows")
	ErrRaggedRecord    = errors.New("record column count does not match header")
	ErrInvalidPercent  = errors.New("invalid percentage: must be between 0 and 100")
	ErrInvalidCategory = errors.New("invalid category count: must be at least 1")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypePrecondition  ErrorType = "precondition"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s - %s", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewConfigurationError creates a configuration error. Configuration errors
// abort a run before any transform is applied.
func NewConfigurationError(code, message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, code, message)
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewPreconditionError wraps one of the precondition sentinels so callers can
// match either on the sentinel or on the error type.
func NewPreconditionError(code string, cause error) *AppError {
	return WrapError(cause, ErrorTypePrecondition, code, "precondition violated")
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Error codes for different error scenarios
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInputNotFound      = "INPUT_NOT_FOUND"
	CodeInvalidFormat      = "INVALID_FORMAT"
	CodeOutOfRange         = "OUT_OF_RANGE"
	CodeLookupMissing      = "LOOKUP_TABLE_MISSING"
	CodeLookupInvalid      = "LOOKUP_TABLE_INVALID"
	CodeMissingUniqueness  = "MISSING_UNIQUENESS"
	CodeEmptyQuasiIdent    = "EMPTY_QUASI_IDENTIFIERS"
	CodeUnknownColumn      = "UNKNOWN_COLUMN"
	CodeEmptyDataset       = "EMPTY_DATASET"
	CodeReadFailed         = "READ_FAILED"
	CodeWriteFailed        = "WRITE_FAILED"
	CodeConnectionFailed   = "CONNECTION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidThresholds  = "INVALID_THRESHOLDS"
	CodeInvalidPercentage  = "INVALID_PERCENTAGE"
	CodeInvalidCategoryNum = "INVALID_CATEGORY_COUNT"
)
