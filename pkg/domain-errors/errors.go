// Package domainerrors carries the error taxonomy shared by every service.
//
// Services return *Error values tagged with a Code; the HTTP boundary
// (pkg/platform/httputil) is the single place that maps a Code to a status.
// Stores never construct these directly: they return pkg/platform/sentinel
// facts which services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and caller branching.
type Code string

const (
	// CodeBadRequest covers malformed requests (unparseable bodies, bad path params).
	CodeBadRequest Code = "bad_request"
	// CodeValidation covers well-formed requests whose fields break a rule.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput is used by value-object parsers at trust boundaries.
	CodeInvalidInput Code = "invalid_input"
	// CodeInvariantViolation is raised by domain constructors; services convert it.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeConflict covers duplicates: username, email, membership, domain ownership.
	CodeConflict Code = "conflict"
	CodeNotFound Code = "not_found"
	// CodeUnauthorized covers authentication failures: credentials, tokens, inactive accounts.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers authenticated principals lacking a role or ownership.
	CodeForbidden Code = "forbidden"
	// CodeUpstream covers registrar and credential store failures.
	CodeUpstream Code = "upstream_error"
	// CodeTimeout covers upstream calls that exceeded their deadline.
	CodeTimeout  Code = "upstream_timeout"
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to callers; Err keeps
// the underlying cause for logs and errors.Is/As chains.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message, so tests can
// assert on a freshly built value with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and caller-safe message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
