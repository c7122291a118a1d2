package bridge

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific failure condition in bridge operations.
// The set is closed: handlers classify every failure into one of these codes
// so logs and metrics stay comparable across components.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the alias does not resolve to any external account
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeProtected indicates the account exists but is access-restricted;
	// provisioning is refused because the bridge cannot read a protected feed
	ErrCodeProtected ErrorCode = "PROTECTED_ACCOUNT"

	// ErrCodeUpload indicates an asset staging failure
	ErrCodeUpload ErrorCode = "UPLOAD_ERROR"

	// ErrCodeSubscription indicates a feed subscription start/stop failure
	ErrCodeSubscription ErrorCode = "SUBSCRIPTION_ERROR"

	// ErrCodeRoomOperation indicates a room create/leave failure reported by
	// the room service
	ErrCodeRoomOperation ErrorCode = "ROOM_OPERATION_ERROR"

	// ErrCodeConfig indicates a configuration error
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeInternal indicates an unexpected internal error
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is a structured error carrying a closed error code, a human-readable
// message, and the underlying cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface, returning a formatted error message.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, allowing errors.Is and errors.As to work.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrNotFound creates a not-found error.
func ErrNotFound(message string, err error) *Error {
	return NewError(ErrCodeNotFound, message, err)
}

// ErrProtected creates a protected-account error.
func ErrProtected(message string, err error) *Error {
	return NewError(ErrCodeProtected, message, err)
}

// ErrUpload creates an asset upload error.
func ErrUpload(message string, err error) *Error {
	return NewError(ErrCodeUpload, message, err)
}

// ErrSubscription creates a subscription error.
func ErrSubscription(message string, err error) *Error {
	return NewError(ErrCodeSubscription, message, err)
}

// ErrRoomOperation creates a room operation error.
func ErrRoomOperation(message string, err error) *Error {
	return NewError(ErrCodeRoomOperation, message, err)
}

// ErrConfig creates a configuration error.
func ErrConfig(message string, err error) *Error {
	return NewError(ErrCodeConfig, message, err)
}

// ErrInternal creates an internal error.
func ErrInternal(message string, err error) *Error {
	return NewError(ErrCodeInternal, message, err)
}

// CodeOf extracts the ErrorCode from an error if it is a bridge Error,
// otherwise returns ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var bErr *Error
	if errors.As(err, &bErr) {
		return bErr.Code
	}
	return ErrCodeInternal
}
