package errors

import (
	"errors"
	"fmt"
)

// Re-exported so callers only need one errors import.
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error extends the builtin error with a code.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError is the default Error implementation.
type AppError struct {
	code      string
	message   string
	retryable bool
	err       error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

func (e *AppError) Message() string {
	return e.message
}

// Retryable reports whether the caller may repeat the request unchanged.
func (e *AppError) Retryable() bool {
	return e.retryable
}

func (e *AppError) Unwrap() error {
	return e.err
}

// NewAppError creates an application error.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// NewRetryableError creates an application error the caller may retry.
func NewRetryableError(code string, message string, err error) *AppError {
	return &AppError{
		code:      code,
		message:   message,
		retryable: true,
		err:       err,
	}
}

// Wrap wraps err keeping the code of an inner AppError, if any.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return &AppError{code: appErr.Code(), message: message, retryable: appErr.retryable, err: err}
	}

	return NewAppError(ErrInternal, message, err)
}

// IsRetryable reports whether any AppError in the chain is retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.retryable
	}
	return false
}
