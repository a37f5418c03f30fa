package core

import (
	"errors"
	"fmt"
)

// Error codes for the client error taxonomy.
const (
	ErrCodeAuth       = "auth_error"
	ErrCodeNetwork    = "network_error"
	ErrCodeServer     = "server_error"
	ErrCodeValidation = "validation_error"
	ErrCodePermission = "permission_error"
	ErrCodeDecode     = "decode_error"
	ErrCodeTimeout    = "timeout_error"
)

// Sentinel kinds; match with errors.Is.
var (
	ErrAuth       = &CoreError{Code: ErrCodeAuth, Message: "authentication required"}
	ErrNetwork    = &CoreError{Code: ErrCodeNetwork, Message: "network unavailable"}
	ErrServer     = &CoreError{Code: ErrCodeServer, Message: "server error"}
	ErrValidation = &CoreError{Code: ErrCodeValidation, Message: "invalid input"}
	ErrPermission = &CoreError{Code: ErrCodePermission, Message: "permission required"}
	ErrDecode     = &CoreError{Code: ErrCodeDecode, Message: "malformed payload"}
	ErrTimeout    = &CoreError{Code: ErrCodeTimeout, Message: "operation timed out"}
)

// Frequently used concrete errors.
var (
	ErrNoCredential = AuthError("no credential available", nil)
	ErrNoActiveRoom = ValidationError("no room is active")
	ErrEmptyMessage = ValidationError("message is empty")
	ErrEmptyName    = ValidationError("room name is required")
	ErrMediaDenied  = PermissionError("media library permission is required to send images")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	// Status is the HTTP status for server and auth errors, zero otherwise.
	Status int
	Err    error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is matches any CoreError carrying the same code, so errors.Is(err, ErrAuth)
// holds for every authentication failure.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the taxonomy code of err, or "" if it carries none.
func CodeOf(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// StatusOf returns the HTTP status attached to err, or 0.
func StatusOf(err error) int {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

// AuthError reports a missing or rejected credential.
func AuthError(msg string, err error) *CoreError { return coreError(ErrCodeAuth, msg, err) }

// NetworkError reports a transport failure with no response.
func NetworkError(msg string, err error) *CoreError { return coreError(ErrCodeNetwork, msg, err) }

// ServerError reports a non-2xx response.
func ServerError(status int, msg string) *CoreError {
	return &CoreError{Code: ErrCodeServer, Message: msg, Status: status}
}

// ValidationError reports input rejected before any call.
func ValidationError(msg string) *CoreError { return coreError(ErrCodeValidation, msg, nil) }

// PermissionError reports a denied platform capability.
func PermissionError(msg string) *CoreError { return coreError(ErrCodePermission, msg, nil) }

// DecodeError reports a malformed realtime payload.
func DecodeError(msg string, err error) *CoreError { return coreError(ErrCodeDecode, msg, err) }

// TimeoutError reports an operation that exceeded its deadline.
func TimeoutError(msg string, err error) *CoreError { return coreError(ErrCodeTimeout, msg, err) }
