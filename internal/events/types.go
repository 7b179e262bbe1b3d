package events

import "github.com/smazurov/feedbackd/internal/types"

// Event type constants for kelindar/event.
const (
	TypeFeedbackTriggered uint32 = iota + 1
	TypeFeedbackEnded
	TypeProfileChanged
	TypeThemeReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FeedbackTriggeredEvent is published when an event starts running feedbacks.
type FeedbackTriggeredEvent struct {
	ID        uint32 `json:"id" example:"7" doc:"Event identifier"`
	AppID     string `json:"app_id" example:"org.gnome.Calls" doc:"Application that triggered the event"`
	Event     string `json:"event" example:"phone-incoming-call" doc:"Event name"`
	Level     string `json:"level" example:"full" doc:"Effective feedback level"`
	Feedbacks int    `json:"feedbacks" example:"2" doc:"Number of feedbacks started"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Trigger timestamp"`
}

// Type returns the event type identifier for FeedbackTriggeredEvent.
func (e FeedbackTriggeredEvent) Type() uint32 { return TypeFeedbackTriggered }

// FeedbackEndedEvent is published once per event id when it ends.
type FeedbackEndedEvent struct {
	ID        uint32          `json:"id" example:"7" doc:"Event identifier"`
	Reason    types.EndReason `json:"reason" example:"natural" doc:"Why the event ended"`
	Timestamp string          `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"End timestamp"`
}

// Type returns the event type identifier for FeedbackEndedEvent.
func (e FeedbackEndedEvent) Type() uint32 { return TypeFeedbackEnded }

// ProfileChangedEvent is published when the global profile changes.
type ProfileChangedEvent struct {
	Profile   string `json:"profile" example:"quiet" doc:"New global profile"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Change timestamp"`
}

// Type returns the event type identifier for ProfileChangedEvent.
func (e ProfileChangedEvent) Type() uint32 { return TypeProfileChanged }

// ThemeReloadedEvent is published after the feedback theme was reloaded.
type ThemeReloadedEvent struct {
	Name      string `json:"name" example:"default" doc:"Theme name"`
	Path      string `json:"path" example:"/etc/feedbackd/theme.yaml" doc:"Theme file"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for ThemeReloadedEvent.
func (e ThemeReloadedEvent) Type() uint32 { return TypeThemeReloaded }
