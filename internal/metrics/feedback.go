// Package metrics provides Prometheus metrics for the feedback daemon.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trigger results.
const (
	ResultStarted  = "started"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
)

var (
	eventsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedbackd",
		Name:      "events_triggered_total",
		Help:      "Feedback events triggered, by result",
	}, []string{"result"})

	eventsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedbackd",
		Name:      "events_ended_total",
		Help:      "Feedback events ended, by end reason",
	}, []string{"reason"})

	activeEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedbackd",
		Name:      "active_events",
		Help:      "Feedback events currently running",
	})

	ledWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "feedbackd",
		Name:      "led_write_errors_total",
		Help:      "Failed LED sysfs attribute writes",
	})

	soundPlays = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedbackd",
		Subsystem: "sound",
		Name:      "plays_total",
		Help:      "Finished sound playbacks, by outcome",
	}, []string{"outcome"})

	// Local copy of the counters for the status API.
	snapshot   FeedbackMetrics
	snapshotMu sync.RWMutex
)

// FeedbackMetrics holds current metric values.
type FeedbackMetrics struct {
	Triggered      uint64 `json:"triggered"`
	Ended          uint64 `json:"ended"`
	Active         int64  `json:"active"`
	LEDWriteErrors uint64 `json:"led_write_errors"`
}

// RecordTrigger counts a trigger request. A started event raises the
// active gauge.
func RecordTrigger(result string) {
	eventsTriggered.WithLabelValues(result).Inc()
	update(func(m *FeedbackMetrics) {
		m.Triggered++
		if result == ResultStarted {
			m.Active++
		}
	})
	if result == ResultStarted {
		activeEvents.Inc()
	}
}

// RecordEnded counts an event end. wasActive lowers the active gauge.
func RecordEnded(reason string, wasActive bool) {
	eventsEnded.WithLabelValues(reason).Inc()
	update(func(m *FeedbackMetrics) {
		m.Ended++
		if wasActive {
			m.Active--
		}
	})
	if wasActive {
		activeEvents.Dec()
	}
}

// RecordLEDWriteError counts a failed LED write.
func RecordLEDWriteError() {
	ledWriteErrors.Inc()
	update(func(m *FeedbackMetrics) { m.LEDWriteErrors++ })
}

// RecordSoundPlay counts a finished playback.
func RecordSoundPlay(outcome string) {
	soundPlays.WithLabelValues(outcome).Inc()
}

// Snapshot returns the current values.
func Snapshot() FeedbackMetrics {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}

func update(fn func(*FeedbackMetrics)) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	fn(&snapshot)
}
