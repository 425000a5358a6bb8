// Package apperr is the application-layer error taxonomy shared by every
// service. The HTTP adapter maps an *Error to a response by its Status.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindStoreFailure      Kind = "store_failure"
	KindSideEffectFailure Kind = "side_effect_failure"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeStoreFailure      = "STORE_FAILURE"
	CodeSideEffectFailure = "SIDE_EFFECT_FAILED"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Details map[string]any

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether repeating the same call may succeed.
// Only store failures qualify; nothing in the app layer retries on its own.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindStoreFailure
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Status: 404, Code: code, Message: message}
}

// Validation reports a malformed input; field maps the offending field to a reason.
func Validation(message string, field, reason string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  422,
		Code:    CodeValidation,
		Message: message,
		Details: map[string]any{field: reason},
	}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Status: 409, Code: code, Message: message}
}

// Store wraps a record store failure. A nil err returns nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{
		Kind:    KindStoreFailure,
		Status:  503,
		Code:    CodeStoreFailure,
		Message: op + " failed",
		Err:     err,
	}
}

// SideEffect reports that the primary mutation persisted but a dependent
// update on another record did not.
func SideEffect(message string, details map[string]any, err error) *Error {
	return &Error{
		Kind:    KindSideEffectFailure,
		Status:  200,
		Code:    CodeSideEffectFailure,
		Message: message,
		Details: details,
		Err:     err,
	}
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// As is errors.As for *Error.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
