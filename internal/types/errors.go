package types

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and services use these instead of
// hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidMode       ErrorCode = "validation_invalid_mode"
	ErrCodeValidationInvalidDaysWindow ErrorCode = "validation_invalid_days_window"
	ErrCodeValidationInvalidWeights    ErrorCode = "validation_invalid_weights"
	ErrCodeValidationInvalidDate       ErrorCode = "validation_invalid_date"
	ErrCodeValidationMissingField      ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidLocation   ErrorCode = "validation_invalid_location"
	ErrCodeValidationInvalidTask       ErrorCode = "validation_invalid_task"
	ErrCodeValidationInvalidRequest    ErrorCode = "validation_invalid_request"

	// Auth (401)
	ErrCodeAuthCronSecretInvalid ErrorCode = "auth_cron_secret_invalid"

	// Not Found (404)
	ErrCodeNotFoundPlot ErrorCode = "not_found_plot"

	// Conflict (409)
	ErrCodeConflictJobRunning ErrorCode = "conflict_job_running"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB          ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeInternalModelConfig ErrorCode = "internal_model_config"
	ErrCodeUpstreamWeather     ErrorCode = "upstream_weather_unavailable"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError carries a stable code for the HTTP layer, a client-safe message
// and the wrapped cause, which is logged but never sent.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus is shorthand for e.Code.HTTPStatus().
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError builds an AppError. err may be nil.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewAppErrorWithDetails builds an AppError with structured details, such as
// the offending field or the plot id, that are returned to the client.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}

// NewPlotNotFound is the one error a single-plot evaluation returns to its
// caller instead of folding it into the outcome.
func NewPlotNotFound(plotID string) *AppError {
	return NewAppErrorWithDetails(ErrCodeNotFoundPlot, "plot not found", nil, map[string]any{"plot_id": plotID})
}

// IsNotFound reports whether err's chain holds an AppError with a not_found_
// code.
func IsNotFound(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "not_found_")
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalUnexpected when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}
