package api

import (
	"context"
	"net/http"

	"github.com/smazurov/feedbackd/internal/events"
	"github.com/smazurov/feedbackd/internal/feedback"
	"github.com/smazurov/feedbackd/internal/led"
)

// FeedbackManager is the part of feedback.Manager the API drives.
type FeedbackManager interface {
	Trigger(req feedback.TriggerRequest, ack func(id uint32)) (uint32, error)
	End(id uint32) error
	Events() []feedback.EventInfo
	Lookup(id uint32) (feedback.EventInfo, bool)
	Profile() string
	SetProfile(profile string) error
}

// LEDLister lists probed LEDs in priority order.
type LEDLister interface {
	Devices() []led.Device
}

// ServiceStatus reports the daemon's systemd unit state.
type ServiceStatus interface {
	Unit() string
	ServiceStatus(ctx context.Context) (string, error)
}

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string

	Manager  FeedbackManager
	LEDs     LEDLister     // nil when no LED registry could be built
	EventBus *events.Bus
	Systemd  ServiceStatus // nil outside a systemd user session

	PrometheusHandler http.Handler
}
