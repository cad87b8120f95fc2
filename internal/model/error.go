package model

import (
	"errors"
	"fmt"
	"net/url"
)

// Error is a coded error template. Errors created from the same template
// match each other through errors.Is regardless of message or cause.
type Error struct {
	ErrCode string `json:"code"`
	Message string `json:"message"`

	cause error
}

func (e Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e Error) Code() string {
	return e.ErrCode
}

// Fmt creates a new error from the base error template with provided arguments
func (e Error) Fmt(args ...any) Error {
	return Error{
		ErrCode: e.ErrCode,
		Message: fmt.Sprintf(e.Message, args...),
		cause:   e.cause,
	}
}

// Wrap attaches an underlying cause, reachable through errors.Unwrap.
func (e Error) Wrap(cause error) Error {
	e.cause = cause
	return e
}

func (e Error) Unwrap() error {
	return e.cause
}

func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}
	return t.ErrCode == e.ErrCode
}

func NewError(code, message string) Error {
	return Error{
		ErrCode: code,
		Message: message,
	}
}

var (
	ErrValidation = NewError("validation", "Validation error: %s")

	ErrConnection         = NewError("connection.failure", "Fail to connect %s")
	ErrAuthentication     = NewError("authentication.failure", "Authentication failure")
	ErrServerApplication  = NewError("server.application", "Server application error")
	ErrConfiguration      = NewError("configuration", "Configuration error: %s")
	ErrVersionTooOld      = NewError("version.too_old", "Your version %q is too old, please update to %s")
	ErrFileNotFound       = NewError("file.not_found", "File not found: %s")
	ErrUnexpectedStatus   = NewError("http.status", "Unexpected HTTP status %d from %s")
	ErrInvalidResponse    = NewError("response.invalid", "Invalid response from %s")
	ErrRedirectsExhausted = NewError("upload.redirects_exhausted", "Upload of %s exceeded %d redirect hops")
)

// ServerError is an application-level error reported by the server in a
// JSON body carrying an "error" key.
type ServerError struct {
	// Payload is the decoded value of the "error" key.
	Payload any
	// Path is the request path, e.g. /application/invoke/genestack/signin.
	Path string
	// Request holds the form values that were posted, if any.
	Request url.Values
	// StackTrace is the server-side trace from "errorStackTrace", if any.
	StackTrace string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s at %s: %v", ErrServerApplication.Message, e.Path, e.Payload)
}

func (e *ServerError) Is(target error) bool {
	return ErrServerApplication.Is(target)
}

// ConnectionError reports a network-level failure talking to Address.
type ConnectionError struct {
	Address string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf(ErrConnection.Message+" %v", e.Address, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

func (e *ConnectionError) Is(target error) bool {
	return ErrConnection.Is(target)
}
