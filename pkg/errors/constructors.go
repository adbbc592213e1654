package errors

import (
	"errors"
	"fmt"
)

// New returns an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with err as its cause. Wrap(nil, ...) is nil.
//
//	if err := pool.Ping(ctx); err != nil {
//	    return errors.Wrap(err, errors.CodeUnavailableDependency, "postgres: ping failed")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Validation returns a CodeValidation error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf returns a CodeValidation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// Required returns a CodeValidationRequired error naming the missing value.
func Required(name string) *Error {
	return Newf(CodeValidationRequired, "%s is required", name)
}

// NotFound returns a CodeNotFoundResource error.
func NotFound(message string) *Error {
	return New(CodeNotFoundResource, message)
}

// Unauthorized returns a CodeAuthentication error.
func Unauthorized(message string) *Error {
	return New(CodeAuthentication, message)
}

// Unavailable returns a CodeUnavailableDependency error.
func Unavailable(message string) *Error {
	return New(CodeUnavailableDependency, message)
}

// Internal returns a CodeInternal error.
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// FromError returns err as an *Error, wrapping foreign errors as
// CodeInternal so that handlers never leak their text to callers.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, CodeInternal, "an unexpected error occurred")
}
