package feedback

import "github.com/smazurov/feedbackd/internal/types"

// EndReason tells why an event ended.
type EndReason = types.EndReason

// End reasons.
const (
	EndReasonNotFound  = types.EndReasonNotFound
	EndReasonNatural   = types.EndReasonNatural
	EndReasonExpired   = types.EndReasonExpired
	EndReasonCancelled = types.EndReasonCancelled
)

// State is the lifecycle state of an Event.
type State int

// Event states. Ended and Errored are terminal for one trigger.
const (
	StateNone State = iota
	StateRunning
	StateEnded
	StateErrored
)

var stateNames = [...]string{"none", "running", "ended", "errored"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
