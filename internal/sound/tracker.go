package sound

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/smazurov/feedbackd/internal/metrics"
)

// DefaultMediaRole is used when a Feedback has no media role.
const DefaultMediaRole = "event"

// Feedback describes one sound to play. Its pointer is the tracking
// identity.
type Feedback struct {
	Effect    string
	FileName  string
	MediaRole string
}

func (f *Feedback) mediaRole() string {
	if f.MediaRole == "" {
		return DefaultMediaRole
	}
	return f.MediaRole
}

// Player plays one sound file until it finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, file, mediaRole string) error
}

// Resolver maps a theme effect to a sound file.
type Resolver interface {
	Resolve(theme, effect string) (string, error)
}

type handle struct {
	cancel   context.CancelFunc
	finished chan struct{}
	// prev is the replaced handle's finished channel. Callbacks for
	// one feedback run in issue order.
	prev <-chan struct{}
}

// Tracker maps in-flight sound feedbacks to cancellable handles.
type Tracker struct {
	player   Player
	resolver Resolver
	logger   *slog.Logger

	mu      sync.Mutex
	theme   string
	handles map[*Feedback]*handle
	closed  bool
	wg      sync.WaitGroup
}

// NewTracker creates a tracker resolving effects in theme.
func NewTracker(player Player, resolver Resolver, theme string, logger *slog.Logger) *Tracker {
	return &Tracker{
		player:   player,
		resolver: resolver,
		logger:   logger,
		theme:    theme,
		handles:  make(map[*Feedback]*handle),
	}
}

// Play starts playback of fb. done is called exactly once when the
// playback has finished, failed or been stopped.
func (t *Tracker) Play(fb *Feedback, done func(error)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		if done != nil {
			go done(ErrClosed)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel, finished: make(chan struct{})}
	if old, ok := t.handles[fb]; ok {
		t.logger.Warn("Feedback already present, replacing playback", "effect", fb.Effect, "file", fb.FileName)
		h.prev = old.finished
	}
	t.handles[fb] = h
	theme := t.theme
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer close(h.finished)
		defer cancel()

		err := t.play(ctx, fb, theme)

		t.mu.Lock()
		if t.handles[fb] == h {
			delete(t.handles, fb)
		}
		t.mu.Unlock()

		if h.prev != nil {
			<-h.prev
		}

		t.logCompletion(fb, err)
		if done != nil {
			done(err)
		}
	}()
}

func (t *Tracker) play(ctx context.Context, fb *Feedback, theme string) error {
	file := fb.FileName
	if file == "" {
		if t.resolver == nil {
			return ErrNotFound
		}
		var err error
		file, err = t.resolver.Resolve(theme, fb.Effect)
		if err != nil {
			return err
		}
	}
	return t.player.Play(ctx, file, fb.mediaRole())
}

func (t *Tracker) logCompletion(fb *Feedback, err error) {
	switch {
	case err == nil:
		metrics.RecordSoundPlay("finished")
		t.logger.Debug("Sound finished", "effect", fb.Effect, "file", fb.FileName)
	case errors.Is(err, ErrNotFound):
		metrics.RecordSoundPlay("not_found")
		t.logger.Debug("Sound not found", "effect", fb.Effect, "file", fb.FileName)
	case errors.Is(err, context.Canceled):
		metrics.RecordSoundPlay("cancelled")
		t.logger.Debug("Sound cancelled", "effect", fb.Effect, "file", fb.FileName)
	default:
		metrics.RecordSoundPlay("failed")
		t.logger.Warn("Failed to play sound", "effect", fb.Effect, "file", fb.FileName, "error", err)
	}
}

// Stop requests cancellation of fb's playback. It returns false when
// nothing is tracked for fb. The outcome arrives through the Play
// callback.
func (t *Tracker) Stop(fb *Feedback) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.handles[fb]
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// Playing reports whether a handle is tracked for fb.
func (t *Tracker) Playing(fb *Feedback) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.handles[fb]
	return ok
}

// Len returns the number of tracked handles.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// SetTheme changes the theme used by later Play calls.
func (t *Tracker) SetTheme(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.theme != name {
		t.logger.Info("Sound theme changed", "from", t.theme, "to", name)
	}
	t.theme = name
}

// Theme returns the current sound theme.
func (t *Tracker) Theme() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.theme
}

// Close cancels all playbacks and waits for their callbacks.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	for _, h := range t.handles {
		h.cancel()
	}
	t.mu.Unlock()
	t.wg.Wait()
}
