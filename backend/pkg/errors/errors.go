package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeTransport represents HTTP transport failures against the pod
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeResource represents resources that could not be fetched or parsed
	ErrorTypeResource ErrorType = "resource"
	// ErrorTypeInput represents invalid caller input
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeAccessControl represents failures provisioning ACL documents
	ErrorTypeAccessControl ErrorType = "acl"
	// ErrorTypeGraph represents failures in multi-step graph operations
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Transport Errors

// TransportError is returned when a request fails on the network or with a
// non-success status. Status is zero for network failures.
type TransportError struct {
	*BaseError
	Method string
	URI    string
	Status int
}

func NewTransportError(method, uri string, status int, err error) *TransportError {
	msg := fmt.Sprintf("%s %s failed", method, uri)
	if status != 0 {
		msg = fmt.Sprintf("%s %s returned %d %s", method, uri, status, http.StatusText(status))
	}
	return &TransportError{
		BaseError: NewBaseError(ErrorTypeTransport, msg, err),
		Method:    method,
		URI:       uri,
		Status:    status,
	}
}

// Resource Errors

// ResourceUnavailableError is returned when a resource cannot be read
type ResourceUnavailableError struct {
	*BaseError
	URI string
}

func NewResourceUnavailable(uri string, err error) *ResourceUnavailableError {
	return &ResourceUnavailableError{
		BaseError: NewBaseError(ErrorTypeResource, fmt.Sprintf("resource unavailable: %s", uri), err),
		URI:       uri,
	}
}

// Input Errors

// InvalidInputError is returned when a caller supplies an unusable argument
type InvalidInputError struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalidInput(field, reason string) *InvalidInputError {
	return &InvalidInputError{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Access Control Errors

// AccessControlError is returned when an ACL document could not be stored
type AccessControlError struct {
	*BaseError
	ResourceURI string
	ACLURI      string
}

func NewAccessControlFailed(resourceURI, aclURI string, err error) *AccessControlError {
	return &AccessControlError{
		BaseError:   NewBaseError(ErrorTypeAccessControl, fmt.Sprintf("access control not established for %s", resourceURI), err),
		ResourceURI: resourceURI,
		ACLURI:      aclURI,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

// Kind returns the category of the error
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if typed, ok := err.(interface{ Kind() ErrorType }); ok && typed.Kind() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// StatusOf returns the HTTP status carried by a transport error, or zero.
func StatusOf(err error) int {
	var te *TransportError
	if stderrors.As(err, &te) {
		return te.Status
	}
	return 0
}

// IsNotFound reports whether err is a transport error with a 404 or 410 status
func IsNotFound(err error) bool {
	status := StatusOf(err)
	return status == http.StatusNotFound || status == http.StatusGone
}
