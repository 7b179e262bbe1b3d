package feedback

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

// DefaultURL is the daemon address used when neither WithURL nor
// $FEEDBACKD_URL is set.
const DefaultURL = "nats://127.0.0.1:4223"

// orphanLimit bounds the ended notifications kept for ids not claimed yet.
const orphanLimit = 64

type options struct {
	url       string
	transport Transport
	logger    *slog.Logger
}

// Option configures Init.
type Option func(*options)

// WithURL sets the daemon address.
func WithURL(url string) Option {
	return func(o *options) { o.url = url }
}

// WithTransport replaces the NATS connection.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithLogger sets the logger for transport diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// endedHandler reports whether n was for it and what to call once the
// dispatch lock is released.
type endedHandler func(n Ended) (matched bool, notify func())

// Context is the per-process client state: the daemon connection, the
// application id and the ids of events still running.
type Context struct {
	appID     string
	sender    string
	transport Transport
	logger    *slog.Logger

	// dispatchMu orders ended delivery against id assignment.
	dispatchMu sync.Mutex

	mu       sync.Mutex
	active   map[uint32]struct{}
	handlers map[uint64]endedHandler
	nextSub  uint64
	orphans  []Ended
	unsub    func()
	closed   bool
}

// Init connects to the daemon on behalf of appID.
func Init(appID string, opts ...Option) (*Context, error) {
	if appID == "" {
		return nil, usageError(CodeNotInitialized, "application id must not be empty")
	}
	o := options{url: os.Getenv("FEEDBACKD_URL")}
	for _, opt := range opts {
		opt(&o)
	}
	if o.url == "" {
		o.url = DefaultURL
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	sender := uuid.NewString()
	transport := o.transport
	if transport == nil {
		t, err := dialNATS(o.url, "feedback:"+appID, sender, o.logger)
		if err != nil {
			return nil, transportError("connect", err)
		}
		transport = t
	}

	c := &Context{
		appID:     appID,
		sender:    sender,
		transport: transport,
		logger:    o.logger,
		active:    make(map[uint32]struct{}),
		handlers:  make(map[uint64]endedHandler),
	}

	unsub, err := transport.SubscribeEnded(c.dispatch)
	if err != nil {
		transport.Close()
		return nil, transportError("subscribe", err)
	}
	c.unsub = unsub
	return c, nil
}

// AppID returns the default application id of triggered events.
func (c *Context) AppID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appID
}

// SetAppID changes the default application id for later triggers.
func (c *Context) SetAppID(appID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appID = appID
}

// Sender identifies this context in trigger requests.
func (c *Context) Sender() string {
	return c.sender
}

// NewEvent creates an event bound to c.
func (c *Context) NewEvent(name string) *Event {
	e := NewEvent(name)
	e.ctx = c
	return e
}

// Active returns the ids of events still running.
func (c *Context) Active() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint32, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

// Profile returns the daemon's global profile.
func (c *Context) Profile(ctx context.Context) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	p, err := c.transport.Profile(ctx)
	if err != nil {
		return "", transportError("get profile", err)
	}
	return p, nil
}

// SetProfile sets the daemon's global profile.
func (c *Context) SetProfile(ctx context.Context, profile string) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := c.transport.SetProfile(ctx, profile); err != nil {
		return transportError("set profile", err)
	}
	return nil
}

// Uninit ends all running events, waiting for each request, and closes
// the connection. The context is unusable afterwards.
func (c *Context) Uninit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ids := make([]uint32, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := c.transport.End(ctx, id); err != nil {
			errs = append(errs, transportError("end", err))
		}
	}
	if unsub != nil {
		unsub()
	}
	c.transport.Close()

	defaultMu.Lock()
	if defaultCtx == c {
		defaultCtx = nil
	}
	defaultMu.Unlock()

	return errors.Join(errs...)
}

func (c *Context) check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return usageError(CodeNotInitialized, "context was uninitialized")
	}
	return nil
}

func (c *Context) addHandler(h endedHandler) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	c.handlers[c.nextSub] = h
	return c.nextSub
}

func (c *Context) removeHandler(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, id)
}

func (c *Context) addActive(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[id] = struct{}{}
}

func (c *Context) removeActive(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, id)
}

// takeOrphan removes and returns a notification that arrived before
// its id was known. Callers hold dispatchMu.
func (c *Context) takeOrphan(id uint32) (Ended, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.orphans {
		if n.ID == id {
			c.orphans = append(c.orphans[:i], c.orphans[i+1:]...)
			return n, true
		}
	}
	return Ended{}, false
}

// dispatch fans an ended notification out to all event handlers.
func (c *Context) dispatch(n Ended) {
	c.dispatchMu.Lock()

	c.mu.Lock()
	handlers := make([]endedHandler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	matched := false
	var notify []func()
	for _, h := range handlers {
		if ok, fn := h(n); ok {
			matched = true
			if fn != nil {
				notify = append(notify, fn)
			}
		}
	}
	if !matched {
		c.mu.Lock()
		c.orphans = append(c.orphans, n)
		if len(c.orphans) > orphanLimit {
			c.orphans = c.orphans[len(c.orphans)-orphanLimit:]
		}
		c.mu.Unlock()
	}
	c.dispatchMu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

var (
	defaultMu  sync.Mutex
	defaultCtx *Context
)

// SetDefault makes c the context used by events created with NewEvent.
func SetDefault(c *Context) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCtx = c
}

// Default returns the context set with SetDefault, or nil.
func Default() *Context {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultCtx
}
