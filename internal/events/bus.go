package events

import (
	"github.com/kelindar/event"
)

// Bus fans daemon events out to in-process subscribers such as the IPC
// service, the SSE stream and metrics.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev to the subscribers of its concrete type. Delivery is
// asynchronous; events of unknown types are dropped.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case FeedbackTriggeredEvent:
		event.Publish(b.dispatcher, e)
	case FeedbackEndedEvent:
		event.Publish(b.dispatcher, e)
	case ProfileChangedEvent:
		event.Publish(b.dispatcher, e)
	case ThemeReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler, a func taking one of the event types, and
// returns its unsubscribe function. Other handler types are ignored.
//
//	unsub := bus.Subscribe(func(e FeedbackEndedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FeedbackTriggeredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FeedbackEndedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProfileChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ThemeReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T to ch for consumers that
// select on a channel. Events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
