package errorx

import (
	"fmt"
	"net/http"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryRateLimit      ErrorCategory = "rate_limit"
	CategoryDependency     ErrorCategory = "dependency"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// APIError is the error type every handler responds with. The wrapped cause
// is logged but never serialised.
type APIError struct {
	Code       string
	Message    string
	Category   ErrorCategory
	Severity   Severity
	HTTPStatus int
	cause      error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Category, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches APIErrors by code so errors.Is works against the templates below
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy carrying a different client-facing message
func (e *APIError) WithMessage(format string, args ...any) *APIError {
	cp := *e
	if len(args) > 0 {
		cp.Message = fmt.Sprintf(format, args...)
	} else {
		cp.Message = format
	}
	return &cp
}

// Wrap returns a copy with err attached as the logged cause
func (e *APIError) Wrap(err error) *APIError {
	cp := *e
	cp.cause = err
	return &cp
}

// Cause returns the wrapped error, if any
func (e *APIError) Cause() error {
	return e.cause
}

var (
	// Validation Errors (E1000-E1999)
	ErrInvalidInput = &APIError{
		Code:       "E1001",
		Message:    "Invalid input provided",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingField = &APIError{
		Code:       "E1002",
		Message:    "Required field is missing",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidOTP = &APIError{
		Code:       "E1003",
		Message:    "Invalid or expired code",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	// Authentication Errors (E2000-E2999)
	ErrUnauthorized = &APIError{
		Code:       "E2001",
		Message:    "Authentication required",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &APIError{
		Code:       "E2002",
		Message:    "Invalid credentials",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpired = &APIError{
		Code:       "E2003",
		Message:    "Authentication token has expired",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
	}

	// Authorization Errors (E3000-E3999)
	ErrForbidden = &APIError{
		Code:       "E3001",
		Message:    "Access denied",
		Category:   CategoryAuthorization,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusForbidden,
	}

	ErrMalformedToken = &APIError{
		Code:       "E3002",
		Message:    "Malformed token payload",
		Category:   CategoryAuthorization,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusForbidden,
	}

	ErrEmailNotVerified = &APIError{
		Code:       "E3003",
		Message:    "Email not verified",
		Category:   CategoryAuthorization,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusForbidden,
	}

	ErrLastSuperAdmin = &APIError{
		Code:       "E3004",
		Message:    "Cannot delete the last Super Admin",
		Category:   CategoryAuthorization,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusForbidden,
	}

	// Not Found Errors (E4000-E4999)
	ErrResourceNotFound = &APIError{
		Code:       "E4001",
		Message:    "Requested resource not found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	ErrResourceExists = &APIError{
		Code:       "E4091",
		Message:    "Resource already exists",
		Category:   CategoryConflict,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusConflict,
	}

	ErrRequestPending = &APIError{
		Code:       "E4092",
		Message:    "Access request already pending",
		Category:   CategoryConflict,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusConflict,
	}

	ErrRateLimitExceeded = &APIError{
		Code:       "E4291",
		Message:    "Too many requests",
		Category:   CategoryRateLimit,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusTooManyRequests,
	}

	// Dependency Errors (E5000-E5999)
	ErrInternalServer = &APIError{
		Code:       "E5001",
		Message:    "Internal server error occurred",
		Category:   CategoryDependency,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrDatabaseError = &APIError{
		Code:       "E5002",
		Message:    "Database operation failed",
		Category:   CategoryDependency,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrMailDelivery = &APIError{
		Code:       "E5003",
		Message:    "Failed to send email",
		Category:   CategoryDependency,
		Severity:   SeverityError,
		HTTPStatus: http.StatusInternalServerError,
	}
)

// Validation creates a 400 error with a specific message
func Validation(format string, args ...any) *APIError {
	return ErrInvalidInput.WithMessage(format, args...)
}

// NotFound creates a 404 error naming the missing resource
func NotFound(resource string) *APIError {
	return ErrResourceNotFound.WithMessage("%s not found", resource)
}

// Conflict creates a 409 error with a specific message
func Conflict(format string, args ...any) *APIError {
	return ErrResourceExists.WithMessage(format, args...)
}

// Database wraps a storage failure as a 500
func Database(err error) *APIError {
	return ErrDatabaseError.Wrap(err)
}
