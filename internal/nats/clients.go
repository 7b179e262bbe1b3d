package nats

import (
	"sync"
	"time"
)

// Clients that trigger with a sender announce it on SubjectClientAlive
// every DefaultHeartbeatInterval. A sender silent for DefaultClientTimeout
// is considered gone and its events are ended.
const (
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultClientTimeout     = 3 * DefaultHeartbeatInterval
)

// clientWatch tracks when each sender was last heard from.
type clientWatch struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	timeout time.Duration
	now     func() time.Time
}

func newClientWatch(timeout time.Duration) *clientWatch {
	return &clientWatch{
		seen:    make(map[string]time.Time),
		timeout: timeout,
		now:     time.Now,
	}
}

func (w *clientWatch) touch(sender string) {
	if sender == "" {
		return
	}
	w.mu.Lock()
	w.seen[sender] = w.now()
	w.mu.Unlock()
}

// forget drops sender and reports whether it was tracked.
func (w *clientWatch) forget(sender string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[sender]
	delete(w.seen, sender)
	return ok
}

// expired removes and returns the senders not heard from within timeout.
func (w *clientWatch) expired() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.now().Add(-w.timeout)
	var gone []string
	for sender, last := range w.seen {
		if last.Before(cutoff) {
			gone = append(gone, sender)
			delete(w.seen, sender)
		}
	}
	return gone
}

func (w *clientWatch) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
