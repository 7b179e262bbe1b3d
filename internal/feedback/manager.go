package feedback

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/feedbackd/internal/events"
	"github.com/smazurov/feedbackd/internal/metrics"
	"github.com/smazurov/feedbackd/internal/sound"
	"github.com/smazurov/feedbackd/internal/types"
)

// Config holds the reloadable manager settings.
type Config struct {
	Profile        string
	AllowImportant []string
	AppProfiles    map[string]string
	PreferFlash    bool
}

// Hints are the optional per-trigger overrides.
type Hints struct {
	Profile   string
	Important bool
	SoundFile string
}

// TriggerRequest asks for feedback for one event.
type TriggerRequest struct {
	AppID   string
	Event   string
	Hints   Hints
	Timeout int32
	Sender  string
}

// Manager resolves events into feedbacks and tracks them until they end.
type Manager struct {
	leds   LEDs
	sounds Sounds
	bus    *events.Bus
	logger *slog.Logger

	mu             sync.Mutex
	level          types.Level
	allowImportant map[string]bool
	appLevels      map[string]types.Level
	preferFlash    bool
	theme          *Theme
	events         map[uint32]*Event
	nextID         uint32
	closed         bool
	running        sync.WaitGroup
}

// NewManager creates a manager. leds and sounds may be nil when the
// device is missing; their feedbacks are then unavailable.
func NewManager(cfg Config, theme *Theme, leds LEDs, sounds Sounds, bus *events.Bus, logger *slog.Logger) (*Manager, error) {
	if theme == nil {
		theme = DefaultTheme()
	}
	m := &Manager{
		leds:      leds,
		sounds:    sounds,
		bus:       bus,
		logger:    logger,
		level:     types.LevelFull,
		appLevels: make(map[string]types.Level),
		theme:     theme,
		events:    make(map[uint32]*Event),
		nextID:    1,
	}
	if err := m.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// ApplyConfig updates the profile, per-app profiles, the important
// allow list and the flash preference.
func (m *Manager) ApplyConfig(cfg Config) error {
	profile := cfg.Profile
	if profile == "" {
		profile = types.LevelFull.String()
	}
	if types.ParseLevel(profile) == types.LevelUnknown {
		return newError(ErrCodeUnknownProfile, "unknown profile "+profile, nil)
	}

	appLevels := make(map[string]types.Level, len(cfg.AppProfiles))
	for app, profile := range cfg.AppProfiles {
		level := types.ParseLevel(profile)
		if level == types.LevelUnknown {
			return newError(ErrCodeUnknownProfile, "invalid profile "+profile+" for app "+app, nil)
		}
		appLevels[app] = level
	}
	allow := make(map[string]bool, len(cfg.AllowImportant))
	for _, app := range cfg.AllowImportant {
		allow[app] = true
	}

	m.mu.Lock()
	m.appLevels = appLevels
	m.allowImportant = allow
	dropFlash := m.preferFlash && !cfg.PreferFlash
	m.preferFlash = cfg.PreferFlash
	running := m.runningLocked()
	m.mu.Unlock()

	if dropFlash {
		for _, ev := range running {
			ev.endMatching(func(fb feedback) bool {
				l, ok := fb.(*ledFeedback)
				return ok && l.preferFlash
			})
		}
	}

	return m.SetProfile(profile)
}

// SetTheme replaces the theme for later triggers.
func (m *Manager) SetTheme(theme *Theme) {
	m.mu.Lock()
	m.theme = theme
	m.mu.Unlock()

	m.logger.Info("Feedback theme loaded", "name", theme.Name, "path", theme.Path)
	m.publish(events.ThemeReloadedEvent{Name: theme.Name, Path: theme.Path, Timestamp: now()})
}

// Theme returns the current theme.
func (m *Manager) Theme() *Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// Profile returns the global profile name.
func (m *Manager) Profile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level.String()
}

// SetProfile switches the global profile and ends running feedbacks
// above the new level.
func (m *Manager) SetProfile(profile string) error {
	level := types.ParseLevel(profile)
	if level == types.LevelUnknown {
		return newError(ErrCodeUnknownProfile, "unknown profile "+profile, nil)
	}

	m.mu.Lock()
	if level == m.level {
		m.mu.Unlock()
		return nil
	}
	m.level = level
	running := m.runningLocked()
	m.mu.Unlock()

	m.logger.Info("Switching profile", "profile", profile)
	for _, ev := range running {
		ev.endByLevel(level)
	}
	m.publish(events.ProfileChangedEvent{Profile: profile, Timestamp: now()})
	return nil
}

// EffectiveLevel combines the global, per-app and hinted levels. Apps
// allowed to send important events get the hinted level unchanged.
func (m *Manager) EffectiveLevel(appID string, want types.Level, important bool) types.Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.effectiveLevelLocked(appID, want, important)
}

func (m *Manager) effectiveLevelLocked(appID string, want types.Level, important bool) types.Level {
	if important && m.allowImportant[appID] {
		return want
	}
	app, ok := m.appLevels[appID]
	if !ok {
		app = types.LevelFull
	}
	return min(m.level, app, want)
}

// Trigger starts the feedbacks for an event. ack, if set, receives the
// id before any feedback runs or the event is reported as ended.
func (m *Manager) Trigger(req TriggerRequest, ack func(id uint32)) (uint32, error) {
	if req.AppID == "" || req.Event == "" {
		metrics.RecordTrigger(metrics.ResultInvalid)
		return 0, newError(ErrCodeInvalidArgs, "app id and event must not be empty", nil)
	}
	want := types.LevelFull
	if req.Hints.Profile != "" {
		want = types.ParseLevel(req.Hints.Profile)
		if want == types.LevelUnknown {
			metrics.RecordTrigger(metrics.ResultInvalid)
			return 0, newError(ErrCodeInvalidArgs, "unknown profile hint "+req.Hints.Profile, nil)
		}
	}
	if req.Timeout < -1 {
		req.Timeout = -1
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, newError(ErrCodeInvalidArgs, "manager is shut down", nil)
	}
	id := m.allocIDLocked()
	level := m.effectiveLevelLocked(req.AppID, want, req.Hints.Important)
	ev := newEvent(id, req, level, m.logger)
	m.addFeedbacksLocked(ev, req, level)

	found := len(ev.entries) > 0
	if found {
		ev.finished = m.eventFinished
		m.events[id] = ev
		m.running.Add(1)
	}
	m.mu.Unlock()

	m.logger.Debug("Event triggered", "event_id", id, "app_id", req.AppID, "event", req.Event,
		"level", level.String(), "timeout", req.Timeout, "feedbacks", len(ev.entries))

	if ack != nil {
		ack(id)
	}

	if !found {
		metrics.RecordTrigger(metrics.ResultNotFound)
		metrics.RecordEnded(types.EndReasonNotFound.String(), false)
		m.publish(events.FeedbackEndedEvent{ID: id, Reason: types.EndReasonNotFound, Timestamp: now()})
		return id, nil
	}

	metrics.RecordTrigger(metrics.ResultStarted)
	m.publish(events.FeedbackTriggeredEvent{
		ID:        id,
		AppID:     req.AppID,
		Event:     req.Event,
		Level:     level.String(),
		Feedbacks: len(ev.entries),
		Timestamp: now(),
	})
	ev.run()
	return id, nil
}

// allocIDLocked returns the next free id. Zero is never used and ids of
// running events are skipped after a wrap.
func (m *Manager) allocIDLocked() uint32 {
	for {
		id := m.nextID
		m.nextID++
		if m.nextID == 0 {
			m.nextID = 1
		}
		if _, busy := m.events[id]; !busy {
			return id
		}
	}
}

func (m *Manager) addFeedbacksLocked(ev *Event, req TriggerRequest, level types.Level) {
	hasSound := false
	if req.Hints.SoundFile != "" && level >= types.LevelFull {
		fb := newSoundFeedback(m.sounds, types.LevelFull, &sound.Feedback{FileName: req.Hints.SoundFile})
		if fb.available() {
			ev.logger.Debug("Using custom sound", "file", req.Hints.SoundFile)
			ev.add(fb)
			hasSound = true
		}
	}

	for _, tf := range m.theme.Lookup(req.Event, level) {
		var fb feedback
		switch tf.Type {
		case TypeSound:
			if hasSound {
				continue
			}
			fb = newSoundFeedback(m.sounds, tf.Level, &sound.Feedback{Effect: tf.Effect, MediaRole: tf.MediaRole})
		case TypeLED:
			fb = newLEDFeedback(m.leds, tf.Level, tf.ThemeFeedback, m.preferFlash, ev.logger)
		default:
			ev.logger.Debug("Skipping unsupported feedback", "type", tf.Type)
			continue
		}
		if !fb.available() {
			ev.logger.Debug("Feedback not available", "feedback", fb.String())
			continue
		}
		ev.add(fb)
	}
}

func (m *Manager) eventFinished(ev *Event) {
	m.mu.Lock()
	if m.events[ev.ID] == ev {
		delete(m.events, ev.ID)
	}
	m.mu.Unlock()

	reason := ev.Reason()
	m.logger.Debug("Event ended", "event_id", ev.ID, "event", ev.Name, "reason", reason.String())
	metrics.RecordEnded(reason.String(), true)
	m.publish(events.FeedbackEndedEvent{ID: ev.ID, Reason: reason, Timestamp: now()})
	m.running.Done()
}

// End stops all feedbacks of a running event. The end is reported
// through the bus once every feedback has stopped.
func (m *Manager) End(id uint32) error {
	m.mu.Lock()
	ev, ok := m.events[id]
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("Tried to end non-existing event", "event_id", id)
		return newError(ErrCodeNotFound, "no running event with this id", nil)
	}
	ev.end(types.EndReasonCancelled)
	return nil
}

// EndSender cancels every running event triggered by sender and returns
// how many were ended. Events without a sender are never matched.
func (m *Manager) EndSender(sender string) int {
	if sender == "" {
		return 0
	}
	m.mu.Lock()
	var owned []*Event
	for _, ev := range m.runningLocked() {
		if ev.Sender == sender {
			owned = append(owned, ev)
		}
	}
	m.mu.Unlock()

	for _, ev := range owned {
		m.logger.Debug("Ending event since its sender vanished", "event_id", ev.ID, "event", ev.Name, "sender", sender)
		ev.end(types.EndReasonCancelled)
	}
	return len(owned)
}

// Events returns the running events ordered by id.
func (m *Manager) Events() []EventInfo {
	m.mu.Lock()
	running := m.runningLocked()
	m.mu.Unlock()

	infos := make([]EventInfo, 0, len(running))
	for _, ev := range running {
		infos = append(infos, ev.Info())
	}
	return infos
}

// Lookup returns the running event with id.
func (m *Manager) Lookup(id uint32) (EventInfo, bool) {
	m.mu.Lock()
	ev, ok := m.events[id]
	m.mu.Unlock()
	if !ok {
		return EventInfo{}, false
	}
	return ev.Info(), true
}

func (m *Manager) runningLocked() []*Event {
	out := make([]*Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	slices.SortFunc(out, func(a, b *Event) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Close rejects new triggers, cancels running events and waits for
// them to finish or ctx to expire.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	running := m.runningLocked()
	m.mu.Unlock()

	for _, ev := range running {
		ev.end(types.EndReasonCancelled)
	}

	done := make(chan struct{})
	go func() {
		m.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
