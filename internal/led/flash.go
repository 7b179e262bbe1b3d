package led

import "log/slog"

// flashLED is a camera flash used as a torch.
type flashLED struct {
	base
}

func newFlash(c Candidate, logger *slog.Logger) *flashLED {
	return &flashLED{base: newBase(c, KindFlash, priorityFlash, logger)}
}

func (l *flashLED) Probe() error {
	if !hasAttr(l.cand.Path, attrFlashStrobe) || !hasAttr(l.cand.Path, attrFlashBrightness) {
		return probeFailed(l.kind, l.cand.Name, "no flash LED")
	}
	if err := l.probeMaxBrightness(); err != nil {
		return err
	}
	l.color = ColorFlash
	l.logger.Debug("LED usable as flash", "path", l.cand.Path)
	return nil
}

func (l *flashLED) StartPeriodic(pct, freq uint32) error {
	return l.startSoftwarePattern(pct, freq)
}
