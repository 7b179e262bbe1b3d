package feedback

import "fmt"

// Usage error codes.
const (
	CodeNotInitialized = "not_initialized"
	CodeTimeoutLocked  = "timeout_locked"
)

// UsageError reports a call the client library does not allow, such as
// triggering before Init.
type UsageError struct {
	Code    string
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("feedback: %s: %s", e.Code, e.Message)
}

func usageError(code, message string) *UsageError {
	return &UsageError{Code: code, Message: message}
}

// TransportError wraps a failed daemon request. Cause is the transport
// failure or the error the daemon replied with.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feedback: %s failed: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

func transportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}
