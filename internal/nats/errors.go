package nats

import "fmt"

// RemoteError is an error reported by the daemon in a reply.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("feedbackd: %s: %s", e.Code, e.Message)
	}
	return "feedbackd: " + e.Message
}
