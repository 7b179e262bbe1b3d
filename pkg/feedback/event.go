package feedback

import (
	"context"
	"sync"
)

// Event is one named feedback event. Create it with NewEvent, configure
// it, then Trigger it. An event may be triggered again once it ended.
type Event struct {
	mu sync.Mutex

	ctx       *Context
	bound     *Context
	name      string
	appID     string
	profile   string
	important bool
	soundFile string
	timeout   int32
	locked    bool

	id        uint32
	state     State
	reason    EndReason
	handlerID uint64

	onEnded func(*Event)
	onState func(*Event, State)
}

// NewEvent creates an event in state StateNone with timeout -1. Unless
// created through Context.NewEvent it uses Default at trigger time.
func NewEvent(name string) *Event {
	return &Event{
		name:    name,
		timeout: -1,
		reason:  EndReasonNatural,
	}
}

// Name returns the event name.
func (e *Event) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// ID returns the daemon's id for the running trigger, or 0.
func (e *Event) ID() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// State returns the lifecycle state.
func (e *Event) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// EndReason returns why the last trigger ended.
func (e *Event) EndReason() EndReason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

// Timeout returns the timeout in seconds. -1 plays each feedback once,
// 0 loops until ended.
func (e *Event) Timeout() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeout
}

// SetTimeout sets the timeout. It fails once the event was triggered.
func (e *Event) SetTimeout(seconds int32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return usageError(CodeTimeoutLocked, "timeout cannot change after trigger")
	}
	e.timeout = seconds
	return nil
}

// Profile returns the per-event profile hint.
func (e *Event) Profile() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// SetProfile limits this event to profile. Empty clears the hint.
func (e *Event) SetProfile(profile string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = profile
}

// Important reports whether the event asks to bypass the global profile.
func (e *Event) Important() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.important
}

// SetImportant marks the event as important.
func (e *Event) SetImportant(important bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.important = important
}

// AppID returns the application id override, or "" for the context's.
func (e *Event) AppID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.appID
}

// SetAppID overrides the context's application id for this event.
func (e *Event) SetAppID(appID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appID = appID
}

// SoundFile returns the custom sound file.
func (e *Event) SoundFile() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.soundFile
}

// SetSoundFile plays path instead of the theme's sound.
func (e *Event) SetSoundFile(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.soundFile = path
}

// OnEnded sets the observer called when the daemon reports the end.
func (e *Event) OnEnded(fn func(*Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnded = fn
}

// OnStateChanged sets the observer called after each state change.
func (e *Event) OnStateChanged(fn func(*Event, State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onState = fn
}

// Trigger asks the daemon to run the event and waits for the reply.
func (e *Event) Trigger(ctx context.Context) error {
	c, err := e.context()
	if err != nil {
		return err
	}
	return e.trigger(ctx, c)
}

// TriggerAsync sends the trigger in the background and calls done with
// the outcome. A cancelled ctx calls done with ctx.Err() early but does
// not withdraw the request.
func (e *Event) TriggerAsync(ctx context.Context, done func(error)) error {
	c, err := e.context()
	if err != nil {
		return err
	}
	async(ctx, done, func(rctx context.Context) error {
		return e.trigger(rctx, c)
	})
	return nil
}

// End asks the daemon to end the event. State changes when the ended
// notification arrives.
func (e *Event) End(ctx context.Context) error {
	c, err := e.context()
	if err != nil {
		return err
	}
	return e.end(ctx, c)
}

// EndAsync is End in the background.
func (e *Event) EndAsync(ctx context.Context, done func(error)) error {
	c, err := e.context()
	if err != nil {
		return err
	}
	async(ctx, done, func(rctx context.Context) error {
		return e.end(rctx, c)
	})
	return nil
}

func async(ctx context.Context, done func(error), op func(context.Context) error) {
	result := make(chan error, 1)
	go func() {
		result <- op(context.WithoutCancel(ctx))
	}()
	go func() {
		var err error
		select {
		case err = <-result:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if done != nil {
			done(err)
		}
	}()
}

func (e *Event) context() (*Context, error) {
	e.mu.Lock()
	c := e.ctx
	e.mu.Unlock()
	if c == nil {
		c = Default()
	}
	if c == nil {
		return nil, usageError(CodeNotInitialized, "feedback context not initialized")
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Event) trigger(ctx context.Context, c *Context) error {
	e.mu.Lock()
	p := TriggerParams{
		AppID:     e.appID,
		Event:     e.name,
		Profile:   e.profile,
		Important: e.important,
		SoundFile: e.soundFile,
		Timeout:   e.timeout,
		Sender:    c.Sender(),
	}
	e.mu.Unlock()
	if p.AppID == "" {
		p.AppID = c.AppID()
	}

	id, err := c.transport.Trigger(ctx, p)
	if err != nil {
		e.setState(StateErrored)
		return transportError("trigger", err)
	}
	e.started(c, id)
	return nil
}

func (e *Event) end(ctx context.Context, c *Context) error {
	if err := c.transport.End(ctx, e.ID()); err != nil {
		return transportError("end", err)
	}
	return nil
}

// started records a successful trigger. A notification that raced ahead
// of the reply is picked up from the context's orphans.
func (e *Event) started(c *Context, id uint32) {
	c.dispatchMu.Lock()
	e.mu.Lock()
	e.id = id
	e.state = StateRunning
	e.locked = true
	e.bound = c
	if e.handlerID == 0 {
		e.handlerID = c.addHandler(e.handleEnded)
	}
	onState := e.onState
	e.mu.Unlock()
	c.addActive(id)
	orphan, ok := c.takeOrphan(id)
	c.dispatchMu.Unlock()

	if onState != nil {
		onState(e, StateRunning)
	}
	if ok {
		if matched, notify := e.handleEnded(orphan); matched && notify != nil {
			notify()
		}
	}
}

func (e *Event) handleEnded(n Ended) (bool, func()) {
	e.mu.Lock()
	if e.id == 0 || n.ID != e.id {
		e.mu.Unlock()
		return false, nil
	}
	e.reason = n.Reason
	e.state = StateEnded
	e.id = 0
	handlerID := e.handlerID
	e.handlerID = 0
	c := e.bound
	onEnded := e.onEnded
	onState := e.onState
	e.mu.Unlock()

	c.removeHandler(handlerID)
	c.removeActive(n.ID)

	return true, func() {
		if onState != nil {
			onState(e, StateEnded)
		}
		if onEnded != nil {
			onEnded(e)
		}
	}
}

func (e *Event) setState(s State) {
	e.mu.Lock()
	e.state = s
	onState := e.onState
	e.mu.Unlock()
	if onState != nil {
		onState(e, s)
	}
}
