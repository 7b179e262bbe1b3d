package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/feedbackd/internal/events"
)

// registerSSERoutes registers the feedback event stream.
func (s *Server) registerSSERoutes() {
	if s.options.EventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "feedback-stream",
		Method:      http.MethodGet,
		Path:        "/api/feedback/stream",
		Summary:     "Feedback Event Stream",
		Description: "Server-sent events for triggered and ended feedback, profile changes and theme reloads",
		Tags:        []string{"feedback"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"feedback-triggered": events.FeedbackTriggeredEvent{},
		"feedback-ended":     events.FeedbackEndedEvent{},
		"profile-changed":    events.ProfileChangedEvent{},
		"theme-reloaded":     events.ThemeReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.FeedbackTriggeredEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.FeedbackEndedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.ProfileChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.ThemeReloadedEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if s.options.Manager != nil {
			if err := send.Data(events.ProfileChangedEvent{
				Profile:   s.options.Manager.Profile(),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
