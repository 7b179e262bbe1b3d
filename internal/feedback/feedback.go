package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/feedbackd/internal/led"
	"github.com/smazurov/feedbackd/internal/metrics"
	"github.com/smazurov/feedbackd/internal/sound"
	"github.com/smazurov/feedbackd/internal/types"
)

// LEDs is the part of the LED registry feedbacks drive.
type LEDs interface {
	Has(color led.Color) bool
	StartPeriodic(color led.Color, rgb *led.RGB, maxBrightnessPct, freq uint32) error
	Stop(color led.Color) error
}

// Sounds is the part of the sound tracker feedbacks drive.
type Sounds interface {
	Play(fb *sound.Feedback, done func(error))
	Stop(fb *sound.Feedback) bool
}

// feedback is one running action of an event. run calls done exactly
// once per run, also after end.
type feedback interface {
	Kind() string
	Level() types.Level
	String() string
	available() bool
	// persistent feedbacks have no natural end of their own.
	persistent() bool
	run(done func(error))
	end()
}

type soundFeedback struct {
	level  types.Level
	sounds Sounds
	fb     *sound.Feedback

	mu    sync.Mutex
	ended bool
}

func newSoundFeedback(sounds Sounds, level types.Level, fb *sound.Feedback) *soundFeedback {
	return &soundFeedback{level: level, sounds: sounds, fb: fb}
}

func (s *soundFeedback) Kind() string       { return TypeSound }
func (s *soundFeedback) Level() types.Level { return s.level }
func (s *soundFeedback) available() bool    { return s.sounds != nil }
func (s *soundFeedback) persistent() bool   { return false }

func (s *soundFeedback) String() string {
	if s.fb.FileName != "" {
		return "sound:" + s.fb.FileName
	}
	return "sound:" + s.fb.Effect
}

func (s *soundFeedback) run(done func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		go done(context.Canceled)
		return
	}
	s.sounds.Play(s.fb, done)
}

func (s *soundFeedback) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	s.sounds.Stop(s.fb)
}

type ledFeedback struct {
	level       types.Level
	leds        LEDs
	spec        string
	color       led.Color
	rgb         led.RGB
	brightness  uint32
	frequency   uint32
	preferFlash bool
	logger      *slog.Logger

	mu       sync.Mutex
	done     func(error)
	finished bool
}

func newLEDFeedback(leds LEDs, level types.Level, tf ThemeFeedback, preferFlash bool, logger *slog.Logger) *ledFeedback {
	color, rgb, ok := led.ParseColor(tf.Color)
	if !ok {
		logger.Warn("Can't parse color, using white", "color", tf.Color)
	}
	// rgb stays filled in for the non-flash fallback
	if preferFlash {
		color = led.ColorFlash
	}
	brightness := tf.MaxBrightness
	if brightness == 0 {
		brightness = 100
	}
	return &ledFeedback{
		level:       level,
		leds:        leds,
		spec:        tf.Color,
		color:       color,
		rgb:         rgb,
		brightness:  brightness,
		frequency:   tf.Frequency,
		preferFlash: preferFlash,
		logger:      logger,
	}
}

func (l *ledFeedback) Kind() string       { return TypeLED }
func (l *ledFeedback) Level() types.Level { return l.level }
func (l *ledFeedback) persistent() bool   { return true }

func (l *ledFeedback) String() string {
	return fmt.Sprintf("led:%s@%dmHz", l.spec, l.frequency)
}

func (l *ledFeedback) available() bool {
	if l.leds == nil {
		return false
	}
	if l.preferFlash {
		return l.leds.Has(led.ColorFlash)
	}
	return l.leds.Has(led.ColorWhite)
}

func (l *ledFeedback) run(done func(error)) {
	l.mu.Lock()
	l.done = done
	l.finished = false
	l.mu.Unlock()

	l.logger.Debug("Periodic LED feedback", "color", l.color.String(), "max_brightness", l.brightness, "frequency", l.frequency)
	rgb := l.rgb
	if err := l.leds.StartPeriodic(l.color, &rgb, l.brightness, l.frequency); err != nil {
		recordLEDError(err)
		l.logger.Warn("Failed to start LED feedback", "color", l.color.String(), "error", err)
		l.finish(err)
	}
}

func (l *ledFeedback) end() {
	if err := l.leds.Stop(l.color); err != nil {
		recordLEDError(err)
		l.logger.Debug("Failed to stop LED", "color", l.color.String(), "error", err)
	}
	l.finish(nil)
}

func (l *ledFeedback) finish(err error) {
	l.mu.Lock()
	if l.finished {
		l.mu.Unlock()
		return
	}
	l.finished = true
	done := l.done
	l.mu.Unlock()

	if done != nil {
		done(err)
	}
}

func recordLEDError(err error) {
	var we *led.WriteError
	if errors.As(err, &we) {
		metrics.RecordLEDWriteError()
	}
}
