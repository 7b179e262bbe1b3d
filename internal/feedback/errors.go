package feedback

import (
	"errors"
	"fmt"
)

// Error is returned by Manager operations that the daemon rejects.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeInvalidArgs    = "invalid_args"
	ErrCodeUnknownProfile = "unknown_profile"
	ErrCodeNotFound       = "not_found"
	ErrCodeInvalidTheme   = "invalid_theme"
)

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the code of a wrapped *Error, or "".
func ErrorCode(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
