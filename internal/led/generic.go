package led

import (
	"log/slog"
	"strings"
)

// genericLED is a single color LED whose color is encoded in its name,
// e.g. "red:status" or "white:indicator".
type genericLED struct {
	base
}

func newGeneric(c Candidate, logger *slog.Logger) *genericLED {
	return &genericLED{base: newBase(c, KindGeneric, priorityGeneric, logger)}
}

// Probe picks the first of white, red, green, blue and rgb found in the name.
func (l *genericLED) Probe() error {
	for c := ColorWhite; c <= ColorRGB; c++ {
		if !strings.Contains(l.cand.Name, c.String()) {
			continue
		}
		if err := l.probeMaxBrightness(); err != nil {
			continue
		}
		l.color = c
		l.logger.Debug("LED usable", "color", c.String(), "path", l.cand.Path)
		return nil
	}
	return probeFailed(l.kind, l.cand.Name, "not usable as RGB LED")
}

// StartPeriodic uses the software pattern trigger.
func (l *genericLED) StartPeriodic(pct, freq uint32) error {
	return l.startSoftwarePattern(pct, freq)
}
