package sound

import "errors"

var (
	// ErrNotFound is reported when the theme has no file for the effect.
	ErrNotFound = errors.New("sound not found")
	// ErrClosed is reported for Play calls on a closed tracker.
	ErrClosed = errors.New("sound tracker closed")
)
