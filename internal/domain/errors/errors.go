package errors

import (
	"net/http"

	"fitgate/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types. Each carries a stable business code so the mobile
// client can distinguish "retry now", "retry later" and "re-run OAuth2".
var (
	// External identity verification
	ErrInvalidGrant = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_GRANT",
		"The authorization code is invalid, expired or already used",
		"",
	)

	ErrProviderUnavailable = NewBaseError(
		http.StatusBadGateway,
		"PROVIDER_UNAVAILABLE",
		"The identity provider could not be reached",
		"",
	)

	ErrInvalidTestCredential = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_TEST_CREDENTIAL",
		"Unknown test credential",
		"",
	)

	ErrTestLoginDisabled = NewBaseError(
		http.StatusForbidden,
		"TEST_LOGIN_DISABLED",
		"Test account login is not enabled",
		"",
	)

	// Session token validation
	ErrInvalidSignature = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_INVALID_SIGNATURE",
		"The token is malformed or not signed by this service",
		"",
	)

	ErrTokenExpired = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
		"The token has expired",
		"",
	)

	ErrWrongTokenKind = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_WRONG_KIND",
		"An access token was supplied where a refresh token was expected, or vice versa",
		"",
	)

	ErrTokenRevoked = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_REVOKED",
		"The session behind this token has been revoked",
		"",
	)

	// Fitness credential lifecycle
	ErrCredentialNotFound = NewBaseError(
		http.StatusNotFound,
		"CREDENTIAL_NOT_FOUND",
		"No Fitness credential is stored for this user",
		"",
	)

	ErrCredentialRevoked = NewBaseError(
		http.StatusUnauthorized,
		"CREDENTIAL_REVOKED",
		"Google rejected the stored refresh token, re-authentication is required",
		"",
	)

	ErrRefreshFailed = NewBaseError(
		http.StatusServiceUnavailable,
		"REFRESH_FAILED",
		"The credential refresh could not complete, try again later",
		"",
	)

	// Session handoff
	ErrTicketNotFound = NewBaseError(
		http.StatusNotFound,
		"TICKET_NOT_FOUND",
		"Unknown handoff ticket",
		"",
	)

	ErrTicketExpired = NewBaseError(
		http.StatusGone,
		"TICKET_EXPIRED",
		"The handoff ticket has expired",
		"",
	)

	ErrTicketConsumed = NewBaseError(
		http.StatusConflict,
		"TICKET_CONSUMED",
		"The handoff ticket was already redeemed",
		"",
	)

	// Identity lookups
	ErrIdentityNotFound = NewBaseError(
		http.StatusNotFound,
		"IDENTITY_NOT_FOUND",
		"No such user",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Access denied",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
