package led

import (
	"errors"
	"fmt"
)

var (
	// ErrNoUsableDevice is returned when no probed LED can serve a request,
	// and wrapped by NewRegistry when probing found nothing at all.
	ErrNoUsableDevice = errors.New("no usable LED found")

	// ErrUnsupportedColor is returned by SetColor for colors the device
	// cannot represent.
	ErrUnsupportedColor = errors.New("unsupported LED color")

	// ErrBrightnessRange is returned when a brightness percentage exceeds 100.
	ErrBrightnessRange = errors.New("brightness percentage out of range")
)

// ProbeError reports why a driver variant rejected a device. Probing
// continues with the next variant.
type ProbeError struct {
	Kind   Kind
	Name   string
	Reason string
	Cause  error
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s probe: %s: %v", e.Name, e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s probe: %s", e.Name, e.Kind, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

func probeFailed(kind Kind, name, reason string) *ProbeError {
	return &ProbeError{Kind: kind, Name: name, Reason: reason}
}

// WriteError reports a failed write to a sysfs attribute.
type WriteError struct {
	Path  string
	Attr  string
	Value string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %q to %s/%s: %v", e.Value, e.Path, e.Attr, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
