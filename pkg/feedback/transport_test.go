package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
)

var errTransport = errors.New("connection refused")

type fakeTransport struct {
	mu         sync.Mutex
	nextID     uint32
	triggers   []TriggerParams
	ends       []uint32
	profile    string
	triggerErr error
	endErr     error
	closed     bool
	subs       int
	listener   func(Ended)

	// beforeReply runs inside Trigger after the id is allocated.
	beforeReply func(id uint32)
	// block holds Trigger until closed.
	block chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{profile: "full"}
}

func (f *fakeTransport) Trigger(ctx context.Context, p TriggerParams) (uint32, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	if f.triggerErr != nil {
		err := f.triggerErr
		f.mu.Unlock()
		return 0, err
	}
	f.nextID++
	id := f.nextID
	f.triggers = append(f.triggers, p)
	hook := f.beforeReply
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return id, nil
}

func (f *fakeTransport) End(ctx context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endErr != nil {
		return f.endErr
	}
	f.ends = append(f.ends, id)
	return nil
}

func (f *fakeTransport) Profile(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, nil
}

func (f *fakeTransport) SetProfile(ctx context.Context, profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = profile
	return nil
}

func (f *fakeTransport) SubscribeEnded(fn func(Ended)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs++
	f.listener = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listener = nil
	}, nil
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// emit delivers an ended notification synchronously.
func (f *fakeTransport) emit(id uint32, reason EndReason) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(Ended{ID: id, Reason: reason})
	}
}

func (f *fakeTransport) endIDs() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.ends...)
}

func (f *fakeTransport) lastTrigger() TriggerParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.triggers) == 0 {
		return TriggerParams{}
	}
	return f.triggers[len(f.triggers)-1]
}

func newTestContext(t *testing.T) (*Context, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	c, err := Init("org.example.Test", WithTransport(ft))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Uninit(context.Background()) })
	return c, ft
}
