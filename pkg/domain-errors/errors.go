// Package domainerrors carries coded errors across layers. Stores and the
// registry core wrap sentinel errors with a Code; transports translate the
// Code into a status without inspecting messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies an error for callers and transports.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Registry and relation failures. Every one of them aborts the call that
	// produced it and is correctable by the caller.
	CodeNotAuthorized    Code = "not_authorized"
	CodeInvalidKey       Code = "invalid_key"
	CodeDuplicateKey     Code = "duplicate_key"
	CodeKeyNotFound      Code = "key_not_found"
	CodeIndexOutOfBounds Code = "index_out_of_bounds"
	CodeNotRegistered    Code = "not_registered"
	CodeAlreadyLinked    Code = "already_linked"
	CodeNotLinked        Code = "not_linked"
)

// Error is a coded error with a caller-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. errors.Is keeps matching err.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the outermost coded error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost coded error in the chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the HTTP layer responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidKey:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotAuthorized:
		return http.StatusForbidden
	case CodeNotFound, CodeKeyNotFound, CodeIndexOutOfBounds, CodeNotLinked:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateKey, CodeAlreadyLinked:
		return http.StatusConflict
	case CodeNotRegistered, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
