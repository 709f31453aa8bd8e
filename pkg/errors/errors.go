// Package errors defines the structured error types used across the
// price comparison service. Errors carry a category, a specific code,
// a user-facing suggestion and arbitrary context, and map to process
// exit codes for the CLI.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryCurrency      ErrorCategory = "currency"
	CategoryMatchProvider ErrorCategory = "match_provider"
	CategoryComparison    ErrorCategory = "comparison"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeDirectoryError ErrorCode = "directory_error"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation errors
	CodeInvalidPrice    ErrorCode = "invalid_price"
	CodeInvalidQuantity ErrorCode = "invalid_quantity"
	CodeMissingField    ErrorCode = "missing_field"
	CodeOutOfRange      ErrorCode = "out_of_range"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Currency errors
	CodeUnsupportedCurrency ErrorCode = "unsupported_currency"
	CodeInvalidRate         ErrorCode = "invalid_rate"

	// Match provider errors
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeMalformedResponse   ErrorCode = "malformed_response"
	CodeRateLimited         ErrorCode = "rate_limited"

	// Comparison errors
	CodeMatchingFailed  ErrorCode = "matching_failed"
	CodeEmptyCatalogue  ErrorCode = "empty_catalogue"
	CodeProcessingError ErrorCode = "processing_error"

	// Internal errors
	CodeUnexpectedError   ErrorCode = "unexpected_error"
	CodeResourceExhausted ErrorCode = "resource_exhausted"
)

// PriceCheckError is the base error type for all application errors
type PriceCheckError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *PriceCheckError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *PriceCheckError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *PriceCheckError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryCurrency, CategoryComparison, CategoryInternal:
		return 5
	case CategoryMatchProvider:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *PriceCheckError) WithContext(key string, value interface{}) *PriceCheckError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *PriceCheckError) WithSuggestion(suggestion string) *PriceCheckError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PriceCheckError
func New(category ErrorCategory, code ErrorCode, message string) *PriceCheckError {
	return &PriceCheckError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with PriceCheckError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *PriceCheckError {
	if err == nil {
		return nil
	}

	return &PriceCheckError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file integrity and try using a backup copy"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is accessible"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, file string, line int, column string, value string, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "check the data format and ensure it matches the expected structure"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "correct the data format or remove the invalid entry"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
		suggestion = "ensure the file is saved in UTF-8 encoding"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidPrice:
		message = fmt.Sprintf("invalid price in field '%s': %v", field, value)
		suggestion = "ensure prices are non-negative decimal numbers (e.g., '12.34')"
	case CodeInvalidQuantity:
		message = fmt.Sprintf("invalid quantity in field '%s': %v", field, value)
		suggestion = "ensure quantities are positive decimal numbers"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings or use default values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// CurrencyError creates a currency conversion error
func CurrencyError(code ErrorCode, from string, to string, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeUnsupportedCurrency:
		message = fmt.Sprintf("no exchange rate available for %s to %s", from, to)
		suggestion = "add the currency pair to the rates file or check the currency codes"
	case CodeInvalidRate:
		message = fmt.Sprintf("invalid exchange rate for %s to %s", from, to)
		suggestion = "ensure exchange rates are positive decimal numbers"
	default:
		message = fmt.Sprintf("currency error converting %s to %s", from, to)
		suggestion = "check the currency codes and rate configuration"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryCurrency, code, message)
	} else {
		result = New(CategoryCurrency, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("from_currency", from).
		WithContext("to_currency", to)
}

// MatchProviderError creates an error for external match provider failures
func MatchProviderError(code ErrorCode, provider string, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeProviderUnavailable:
		message = fmt.Sprintf("match provider %s is unavailable", provider)
		suggestion = "check network connectivity and API credentials, or disable the fallback"
	case CodeMalformedResponse:
		message = fmt.Sprintf("match provider %s returned a malformed response", provider)
		suggestion = "retry the operation or disable the fallback"
	case CodeRateLimited:
		message = fmt.Sprintf("match provider %s rate limit reached", provider)
		suggestion = "reduce request frequency or increase the rate limit interval"
	default:
		message = fmt.Sprintf("match provider error: %s", provider)
		suggestion = "check the provider configuration and try again"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryMatchProvider, code, message)
	} else {
		result = New(CategoryMatchProvider, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("provider", provider)
}

// ComparisonError creates a comparison-related error
func ComparisonError(code ErrorCode, operation string, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeMatchingFailed:
		message = fmt.Sprintf("matching failed during %s", operation)
		suggestion = "try adjusting matching thresholds or check data quality"
	case CodeEmptyCatalogue:
		message = fmt.Sprintf("catalogue is empty during %s", operation)
		suggestion = "verify the catalogue file has at least one valid item"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "check system resources and try again"
	default:
		message = fmt.Sprintf("comparison error during %s", operation)
		suggestion = "review the data and configuration"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryComparison, code, message)
	} else {
		result = New(CategoryComparison, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *PriceCheckError {
	var message string
	var suggestion string

	switch code {
	case CodeUnexpectedError:
		message = fmt.Sprintf("unexpected error during %s", operation)
		suggestion = "this is likely a bug - please report it with the error details"
	case CodeResourceExhausted:
		message = fmt.Sprintf("resource exhausted during %s", operation)
		suggestion = "try reducing batch size or increasing system resources"
	default:
		message = fmt.Sprintf("internal error during %s", operation)
		suggestion = "try again or contact support if the problem persists"
	}

	var result *PriceCheckError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*PriceCheckError    `json:"errors"`
	SampleErrors []*PriceCheckError    `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errors []*PriceCheckError) *ErrorSummary {
	if len(errors) == 0 {
		return &ErrorSummary{
			Total:      0,
			ByCategory: make(map[ErrorCategory]int),
			ByCode:     make(map[ErrorCode]int),
			Errors:     []*PriceCheckError{},
		}
	}

	summary := &ErrorSummary{
		Total:      len(errors),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errors,
	}

	for _, err := range errors {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	maxSamples := 5
	if len(errors) > maxSamples {
		summary.SampleErrors = errors[:maxSamples]
	} else {
		summary.SampleErrors = errors
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	count, exists := es.ByCode[code]
	return exists && count > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// Utility functions

// IsPriceCheckError checks if an error is a PriceCheckError
func IsPriceCheckError(err error) bool {
	_, ok := err.(*PriceCheckError)
	return ok
}

// AsPriceCheckError extracts a PriceCheckError from an error chain
func AsPriceCheckError(err error) (*PriceCheckError, bool) {
	var pcErr *PriceCheckError
	if errors.As(err, &pcErr) {
		return pcErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a PriceCheckError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *PriceCheckError {
	if err == nil {
		return nil
	}

	if pcErr, ok := AsPriceCheckError(err); ok {
		return pcErr
	}

	return Wrap(err, category, code, message)
}
