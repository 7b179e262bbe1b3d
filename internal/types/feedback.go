package types

import (
	"fmt"
	"strings"
)

// EndReason says why a feedback event stopped. Numeric values match the
// ABI used by existing feedback clients.
type EndReason int32

const (
	EndReasonNotFound  EndReason = -1 // No feedback matched the event
	EndReasonNatural   EndReason = 0  // All feedbacks ran to completion
	EndReasonExpired   EndReason = 1  // The requested timeout elapsed
	EndReasonCancelled EndReason = 2  // The client ended the event
)

var endReasonNames = map[EndReason]string{
	EndReasonNotFound:  "not-found",
	EndReasonNatural:   "natural",
	EndReasonExpired:   "expired",
	EndReasonCancelled: "cancelled",
}

func (r EndReason) String() string {
	if name, ok := endReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("EndReason(%d)", int32(r))
}

// MarshalText encodes the reason by name.
func (r EndReason) MarshalText() ([]byte, error) {
	if _, ok := endReasonNames[r]; !ok {
		return nil, fmt.Errorf("invalid end reason %d", int32(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (r *EndReason) UnmarshalText(text []byte) error {
	parsed, err := ParseEndReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseEndReason converts a reason name to its value.
func ParseEndReason(s string) (EndReason, error) {
	for reason, name := range endReasonNames {
		if strings.EqualFold(s, name) {
			return reason, nil
		}
	}
	return EndReasonNatural, fmt.Errorf("unknown end reason %q", s)
}

// Level is a feedback profile level. Higher levels allow more noise.
type Level int

const (
	LevelUnknown Level = -1
	LevelSilent  Level = 0
	LevelQuiet   Level = 1
	LevelFull    Level = 2
)

// ParseLevel maps a profile name to its level. Unknown names yield
// LevelUnknown.
func ParseLevel(profile string) Level {
	switch profile {
	case "full":
		return LevelFull
	case "quiet":
		return LevelQuiet
	case "silent":
		return LevelSilent
	default:
		return LevelUnknown
	}
}

// String returns the profile name of the level.
func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelQuiet:
		return "quiet"
	case LevelSilent:
		return "silent"
	default:
		return "unknown"
	}
}

// Profiles lists the known profile names from least to most noisy.
func Profiles() []string {
	return []string{LevelSilent.String(), LevelQuiet.String(), LevelFull.String()}
}
