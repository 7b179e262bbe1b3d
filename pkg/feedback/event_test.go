package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewEventDefaults(t *testing.T) {
	ev := NewEvent("phone-incoming-call")

	if ev.State() != StateNone {
		t.Errorf("State() = %v, want none", ev.State())
	}
	if ev.EndReason() != EndReasonNatural {
		t.Errorf("EndReason() = %v, want natural", ev.EndReason())
	}
	if ev.Timeout() != -1 {
		t.Errorf("Timeout() = %d, want -1", ev.Timeout())
	}
	if ev.ID() != 0 {
		t.Errorf("ID() = %d, want 0", ev.ID())
	}
}

func TestTriggerWithoutContext(t *testing.T) {
	SetDefault(nil)
	ev := NewEvent("phone-incoming-call")

	tests := []struct {
		name string
		call func() error
	}{
		{"Trigger", func() error { return ev.Trigger(context.Background()) }},
		{"TriggerAsync", func() error { return ev.TriggerAsync(context.Background(), nil) }},
		{"End", func() error { return ev.End(context.Background()) }},
		{"EndAsync", func() error { return ev.EndAsync(context.Background(), nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ue *UsageError
			err := tt.call()
			if !errors.As(err, &ue) || ue.Code != CodeNotInitialized {
				t.Errorf("error = %v, want %s", err, CodeNotInitialized)
			}
		})
	}
	if ev.State() != StateNone {
		t.Errorf("State() = %v, want none", ev.State())
	}
}

func TestTriggerSendsParams(t *testing.T) {
	c, ft := newTestContext(t)

	ev := c.NewEvent("message-new-instant")
	ev.SetProfile("quiet")
	ev.SetImportant(true)
	ev.SetSoundFile("/tmp/ding.oga")
	if err := ev.SetTimeout(10); err != nil {
		t.Fatalf("SetTimeout() error = %v", err)
	}

	if err := ev.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	want := TriggerParams{
		AppID:     "org.example.Test",
		Event:     "message-new-instant",
		Profile:   "quiet",
		Important: true,
		SoundFile: "/tmp/ding.oga",
		Timeout:   10,
		Sender:    c.Sender(),
	}
	if got := ft.lastTrigger(); got != want {
		t.Errorf("trigger params = %+v, want %+v", got, want)
	}
	if ev.State() != StateRunning || ev.ID() != 1 {
		t.Errorf("after trigger state = %v id = %d", ev.State(), ev.ID())
	}
	if ids := c.Active(); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("Active() = %v, want [1]", ids)
	}

	ev.SetAppID("org.example.Other")
	if err := ev.Trigger(context.Background()); err != nil {
		t.Fatalf("second Trigger() error = %v", err)
	}
	if got := ft.lastTrigger().AppID; got != "org.example.Other" {
		t.Errorf("app id = %q, want override", got)
	}
}

func TestTimeoutLockedAfterTrigger(t *testing.T) {
	c, _ := newTestContext(t)
	ev := c.NewEvent("alarm-clock-elapsed")

	if err := ev.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	var ue *UsageError
	if err := ev.SetTimeout(5); !errors.As(err, &ue) || ue.Code != CodeTimeoutLocked {
		t.Errorf("SetTimeout() error = %v, want %s", err, CodeTimeoutLocked)
	}
	if ev.Timeout() != -1 {
		t.Errorf("Timeout() = %d, want -1", ev.Timeout())
	}
}

func TestTriggerFailure(t *testing.T) {
	c, ft := newTestContext(t)
	ft.triggerErr = errTransport

	ev := c.NewEvent("phone-incoming-call")
	var states []State
	ev.OnStateChanged(func(_ *Event, s State) { states = append(states, s) })

	err := ev.Trigger(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || !errors.Is(err, errTransport) {
		t.Fatalf("Trigger() error = %v, want TransportError", err)
	}
	if ev.State() != StateErrored {
		t.Errorf("State() = %v, want errored", ev.State())
	}
	if len(states) != 1 || states[0] != StateErrored {
		t.Errorf("state changes = %v", states)
	}
	if err := ev.SetTimeout(3); err != nil {
		t.Errorf("SetTimeout() after failed trigger error = %v", err)
	}
}

func TestEndedNotification(t *testing.T) {
	c, ft := newTestContext(t)

	ev := c.NewEvent("phone-incoming-call")
	other := c.NewEvent("message-new-instant")
	var ended []*Event
	var states []State
	ev.OnEnded(func(e *Event) { ended = append(ended, e) })
	ev.OnStateChanged(func(_ *Event, s State) { states = append(states, s) })

	for _, e := range []*Event{ev, other} {
		if err := e.Trigger(context.Background()); err != nil {
			t.Fatalf("Trigger() error = %v", err)
		}
	}

	ft.emit(other.ID(), EndReasonExpired)
	if len(ended) != 0 || ev.State() != StateRunning {
		t.Fatal("event reacted to another id")
	}

	ft.emit(1, EndReasonCancelled)
	if len(ended) != 1 || ended[0] != ev {
		t.Fatalf("OnEnded calls = %d, want 1", len(ended))
	}
	if ev.State() != StateEnded || ev.EndReason() != EndReasonCancelled {
		t.Errorf("state = %v reason = %v", ev.State(), ev.EndReason())
	}
	if ev.ID() != 0 {
		t.Errorf("ID() = %d, want 0 after end", ev.ID())
	}
	want := []State{StateRunning, StateEnded}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Errorf("state changes = %v, want %v", states, want)
	}

	ft.emit(1, EndReasonNatural)
	if len(ended) != 1 {
		t.Error("duplicate notification delivered")
	}
	if ids := c.Active(); len(ids) != 0 {
		t.Errorf("Active() = %v, want empty", ids)
	}
	c.mu.Lock()
	handlers := len(c.handlers)
	c.mu.Unlock()
	if handlers != 0 {
		t.Errorf("handlers = %d, want 0", handlers)
	}
}

func TestRetriggerRegistersOnce(t *testing.T) {
	c, _ := newTestContext(t)
	ev := c.NewEvent("phone-incoming-call")

	for range 3 {
		if err := ev.Trigger(context.Background()); err != nil {
			t.Fatalf("Trigger() error = %v", err)
		}
	}
	c.mu.Lock()
	handlers := len(c.handlers)
	c.mu.Unlock()
	if handlers != 1 {
		t.Errorf("handlers = %d, want 1", handlers)
	}
}

func TestEndedBeforeReply(t *testing.T) {
	c, ft := newTestContext(t)
	ft.beforeReply = func(id uint32) {
		ft.emit(id, EndReasonNotFound)
	}

	ev := c.NewEvent("no-such-event")
	endedCh := make(chan EndReason, 1)
	ev.OnEnded(func(e *Event) { endedCh <- e.EndReason() })

	if err := ev.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	select {
	case r := <-endedCh:
		if r != EndReasonNotFound {
			t.Errorf("reason = %v, want not-found", r)
		}
	default:
		t.Fatal("early notification was lost")
	}
	if ev.State() != StateEnded {
		t.Errorf("State() = %v, want ended", ev.State())
	}
	if ids := c.Active(); len(ids) != 0 {
		t.Errorf("Active() = %v, want empty", ids)
	}
}

func TestEndSendsStoredID(t *testing.T) {
	c, ft := newTestContext(t)
	ev := c.NewEvent("phone-incoming-call")

	if err := ev.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if err := ev.End(context.Background()); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ids := ft.endIDs(); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("ended ids = %v, want [1]", ids)
	}
	if ev.State() != StateRunning {
		t.Errorf("End() changed local state to %v", ev.State())
	}

	ft.endErr = errTransport
	var te *TransportError
	if err := ev.End(context.Background()); !errors.As(err, &te) {
		t.Errorf("End() error = %v, want TransportError", err)
	}
}

func TestTriggerAsync(t *testing.T) {
	c, _ := newTestContext(t)
	ev := c.NewEvent("phone-incoming-call")

	done := make(chan error, 1)
	if err := ev.TriggerAsync(context.Background(), func(err error) { done <- err }); err != nil {
		t.Fatalf("TriggerAsync() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("done error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("done not called")
	}
	if ev.State() != StateRunning {
		t.Errorf("State() = %v, want running", ev.State())
	}
}

func TestTriggerAsyncCancelled(t *testing.T) {
	c, ft := newTestContext(t)
	ft.block = make(chan struct{})
	ev := c.NewEvent("phone-incoming-call")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	if err := ev.TriggerAsync(ctx, func(err error) { done <- err }); err != nil {
		t.Fatalf("TriggerAsync() error = %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("done error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("done not called after cancel")
	}

	close(ft.block)
	deadline := time.Now().Add(time.Second)
	for ev.State() != StateRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ev.State() != StateRunning {
		t.Error("cancelled request did not reach the daemon")
	}
}

func TestConcurrentEvents(t *testing.T) {
	c, ft := newTestContext(t)

	var wg sync.WaitGroup
	events := make([]*Event, 20)
	for i := range events {
		events[i] = c.NewEvent("message-new-instant")
		wg.Add(1)
		go func(ev *Event) {
			defer wg.Done()
			if err := ev.Trigger(context.Background()); err != nil {
				t.Errorf("Trigger() error = %v", err)
			}
		}(events[i])
	}
	wg.Wait()

	for _, ev := range events {
		ft.emit(ev.ID(), EndReasonNatural)
	}
	for _, ev := range events {
		if ev.State() != StateEnded {
			t.Errorf("event state = %v, want ended", ev.State())
		}
	}
	if ids := c.Active(); len(ids) != 0 {
		t.Errorf("Active() = %v, want empty", ids)
	}
}
