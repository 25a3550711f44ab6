package client

import (
	"errors"
	"fmt"
)

// Error types carried in ClientError.Type
const (
	ErrTypeNoToken           = "no_token"
	ErrTypeAuthentication    = "authentication_error"
	ErrTypeSessionExpired    = "session_expired"
	ErrTypeEmptyResourceList = "empty_resource_list"
	ErrTypeHTTP              = "http_error"
	ErrTypeTransport         = "transport_error"
	ErrTypeDecode            = "decode_error"
	ErrTypeAuthorization     = "authorization_error"
	ErrTypeNotFound          = "not_found"
	ErrTypeInvalidInput      = "invalid_input"
)

// ClientError represents errors that occur during Jira client operations
type ClientError struct {
	Type    string // Type of error (no_token, http_error, etc.)
	Message string // Human-readable error message
	Err     error  // Underlying error
	Context string // Additional context (issue key, operation, etc.)

	// StatusCode and StatusText are set when Jira answered with a non-2xx status
	StatusCode int
	StatusText string
}

func (e *ClientError) Error() string {
	message := e.Message
	if e.StatusCode != 0 {
		message = fmt.Sprintf("%s (HTTP %d %s)", message, e.StatusCode, e.StatusText)
	}
	if e.Context != "" {
		return fmt.Sprintf("Jira client error (%s) for %s: %s", e.Type, e.Context, message)
	}
	return fmt.Sprintf("Jira client error (%s): %s", e.Type, message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func errorType(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ""
}

// IsAuthError reports a missing, rejected or expired access token
func IsAuthError(err error) bool {
	switch errorType(err) {
	case ErrTypeNoToken, ErrTypeAuthentication, ErrTypeSessionExpired:
		return true
	}
	return false
}

// IsAuthenticationError checks if Jira rejected the token with 401
func IsAuthenticationError(err error) bool {
	return errorType(err) == ErrTypeAuthentication
}

// IsResolutionError checks if the token reaches no Jira Cloud site
func IsResolutionError(err error) bool {
	return errorType(err) == ErrTypeEmptyResourceList
}

// IsTransportError reports network failures, non-2xx answers and undecodable bodies
func IsTransportError(err error) bool {
	switch errorType(err) {
	case ErrTypeHTTP, ErrTypeTransport, ErrTypeDecode, ErrTypeAuthorization, ErrTypeNotFound:
		return true
	}
	return false
}

// IsNotFoundError checks if the error is related to a resource not being found
func IsNotFoundError(err error) bool {
	return errorType(err) == ErrTypeNotFound
}

// IsAuthorizationError checks if the error is related to insufficient permissions
func IsAuthorizationError(err error) bool {
	return errorType(err) == ErrTypeAuthorization
}
