// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternal             = "INTERNAL_ERROR"
	ErrCodeBadRequest           = "BAD_REQUEST"
	ErrCodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	ErrCodeConfigurationMissing = "CONFIGURATION_MISSING"
	ErrCodeUpstream             = "UPSTREAM_ERROR"
	ErrCodeTransport            = "TRANSPORT_ERROR"
	ErrCodeParse                = "PARSE_ERROR"
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	// UpstreamStatus is the status code returned by n8n, if the error came from there.
	UpstreamStatus int   `json:"-"`
	Err            error `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, identifier string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    identifier,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeInternal,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewBadRequestError creates a new bad request error.
func NewBadRequestError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewServiceUnavailableError creates a new service unavailable error.
func NewServiceUnavailableError(service string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeServiceUnavailable,
		Message:    fmt.Sprintf("%s is unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewConfigurationMissingError is returned when the caller has no n8n API key stored.
func NewConfigurationMissingError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeConfigurationMissing,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUpstreamError wraps a non-2xx answer from n8n. The HTTP status of the
// error is the upstream status so callers see the original code.
func NewUpstreamError(status int, body string) *DomainError {
	return &DomainError{
		Code:           ErrCodeUpstream,
		Message:        fmt.Sprintf("n8n API returned status %d", status),
		Details:        body,
		HTTPStatus:     status,
		UpstreamStatus: status,
	}
}

// NewTransportError wraps a network-level failure talking to n8n.
func NewTransportError(err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeTransport,
		Message:    "internal error",
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewParseError is returned when a response that should be JSON is not.
func NewParseError(what string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeParse,
		Message:    fmt.Sprintf("failed to parse %s", what),
		Details:    details,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// IsDomainError checks if the error is a domain error.
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code string) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == code
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return HasCode(err, ErrCodeUnauthorized)
}

// IsConfigurationMissing checks if the caller has no n8n credentials configured.
func IsConfigurationMissing(err error) bool {
	return HasCode(err, ErrCodeConfigurationMissing)
}

// IsUpstreamError checks if the error is a non-2xx answer from n8n.
func IsUpstreamError(err error) bool {
	return HasCode(err, ErrCodeUpstream)
}

// IsTransportError checks if the error is a network-level failure.
func IsTransportError(err error) bool {
	return HasCode(err, ErrCodeTransport)
}

// IsParseError checks if the error is a malformed response.
func IsParseError(err error) bool {
	return HasCode(err, ErrCodeParse)
}
