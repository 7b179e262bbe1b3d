package feedback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/feedbackd/internal/types"
)

// Event is one triggered event and the feedbacks it runs.
type Event struct {
	ID      uint32
	AppID   string
	Name    string
	Sender  string
	Timeout int32
	Level   types.Level
	Started time.Time

	logger   *slog.Logger
	finished func(*Event)

	mu      sync.Mutex
	entries []*entry
	ending  bool
	done    bool
	reason  types.EndReason
	timer   *time.Timer
}

type entry struct {
	fb       feedback
	running  bool
	done     bool
	stopping bool
}

// EventInfo is a snapshot of a running event.
type EventInfo struct {
	ID        uint32    `json:"id" example:"7" doc:"Event identifier"`
	AppID     string    `json:"app_id" example:"org.gnome.Calls" doc:"Application id"`
	Event     string    `json:"event" example:"phone-incoming-call" doc:"Event name"`
	Timeout   int32     `json:"timeout" example:"-1" doc:"Timeout in seconds"`
	Level     string    `json:"level" example:"full" doc:"Effective level"`
	Feedbacks []string  `json:"feedbacks" doc:"Feedbacks still running"`
	Started   time.Time `json:"started" doc:"Trigger time"`
}

func newEvent(id uint32, req TriggerRequest, level types.Level, logger *slog.Logger) *Event {
	return &Event{
		ID:      id,
		AppID:   req.AppID,
		Name:    req.Event,
		Sender:  req.Sender,
		Timeout: req.Timeout,
		Level:   level,
		Started: time.Now(),
		logger:  logger.With("event_id", id, "event", req.Event),
		reason:  types.EndReasonNatural,
	}
}

func (e *Event) add(fb feedback) {
	e.entries = append(e.entries, &entry{fb: fb})
}

// loops reports whether feedbacks restart after finishing: timeout 0
// loops until ended, a positive timeout loops until it expires.
func (e *Event) loops() bool {
	return e.Timeout >= 0
}

// Reason returns the end reason, NATURAL until the event is ended.
func (e *Event) Reason() types.EndReason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

// Info returns a snapshot of the event.
func (e *Event) Info() EventInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := EventInfo{
		ID:        e.ID,
		AppID:     e.AppID,
		Event:     e.Name,
		Timeout:   e.Timeout,
		Level:     e.Level.String(),
		Feedbacks: []string{},
		Started:   e.Started,
	}
	for _, en := range e.entries {
		if !en.done {
			info.Feedbacks = append(info.Feedbacks, en.fb.String())
		}
	}
	return info
}

func (e *Event) run() {
	e.mu.Lock()
	entries := append([]*entry(nil), e.entries...)
	for _, en := range entries {
		en.running = true
	}
	if e.Timeout > 0 {
		e.timer = time.AfterFunc(time.Duration(e.Timeout)*time.Second, e.expire)
	}
	e.mu.Unlock()

	for _, en := range entries {
		e.start(en)
	}
}

func (e *Event) start(en *entry) {
	e.logger.Debug("Running feedback", "feedback", en.fb.String(), "level", en.fb.Level().String())
	en.fb.run(func(err error) { e.feedbackDone(en, err) })
}

func (e *Event) feedbackDone(en *entry, err error) {
	e.mu.Lock()
	en.running = false

	if err == nil && !e.ending && !en.stopping && e.loops() && !en.fb.persistent() {
		en.running = true
		e.mu.Unlock()
		e.start(en)
		return
	}
	en.done = true

	// Persistent feedbacks follow the others once those have finished
	// on their own.
	var trailing []*entry
	if !e.ending && !en.stopping && e.onlyPersistentLeft() {
		for _, o := range e.entries {
			if o.running && !o.stopping {
				o.stopping = true
				trailing = append(trailing, o)
			}
		}
	}

	finished := false
	if !e.done && e.allDone() {
		e.done = true
		finished = true
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	e.mu.Unlock()

	for _, o := range trailing {
		o.fb.end()
	}
	if finished {
		e.logger.Debug("All feedbacks ended", "reason", e.Reason().String())
		if e.finished != nil {
			e.finished(e)
		}
	}
}

// onlyPersistentLeft reports whether every non-persistent feedback is
// done while at least one existed. Callers hold e.mu.
func (e *Event) onlyPersistentLeft() bool {
	transient := false
	for _, en := range e.entries {
		if en.fb.persistent() {
			continue
		}
		transient = true
		if !en.done {
			return false
		}
	}
	return transient
}

func (e *Event) allDone() bool {
	for _, en := range e.entries {
		if !en.done {
			return false
		}
	}
	return true
}

func (e *Event) expire() {
	e.logger.Debug("Event expired", "timeout", e.Timeout)
	e.end(types.EndReasonExpired)
}

// end stops all running feedbacks. It returns false when the event is
// already ending.
func (e *Event) end(reason types.EndReason) bool {
	e.mu.Lock()
	if e.ending || e.done {
		e.mu.Unlock()
		return false
	}
	e.ending = true
	e.reason = reason
	if e.timer != nil {
		e.timer.Stop()
	}
	var stop []*entry
	for _, en := range e.entries {
		if en.running && !en.stopping {
			en.stopping = true
			stop = append(stop, en)
		}
	}
	e.mu.Unlock()

	for _, en := range stop {
		en.fb.end()
	}
	return true
}

// endMatching stops the running feedbacks selected by match without
// ending the event as a whole.
func (e *Event) endMatching(match func(feedback) bool) int {
	e.mu.Lock()
	var stop []*entry
	for _, en := range e.entries {
		if en.running && !en.stopping && match(en.fb) {
			en.stopping = true
			stop = append(stop, en)
		}
	}
	e.mu.Unlock()

	for _, en := range stop {
		en.fb.end()
	}
	return len(stop)
}

// endByLevel stops the feedbacks whose profile is above level.
func (e *Event) endByLevel(level types.Level) int {
	return e.endMatching(func(fb feedback) bool { return fb.Level() > level })
}
