package led

import (
	"fmt"
	"log/slog"
	"slices"
)

const (
	qcomDriver = "qcom-spmi-lpg"
	// qcomMaxPauseMs is the longest pause the LPG hardware pattern supports.
	qcomMaxPauseMs = 511
	repeatForever  = "-1"
)

// qcomLED is a single color LED on a Qualcomm LPG block, which can run
// blink patterns in hardware.
type qcomLED struct {
	genericLED
}

func newQcom(c Candidate, logger *slog.Logger) *qcomLED {
	return &qcomLED{genericLED: genericLED{base: newBase(c, KindQcom, priorityQcom, logger)}}
}

// probeQcomHardware checks for the hw_pattern attribute and the LPG driver.
func probeQcomHardware(kind Kind, c Candidate) error {
	if !hasAttr(c.Path, attrHWPattern) {
		return probeFailed(kind, c.Name, "no LED with HW pattern support")
	}
	if !slices.Contains(c.Drivers, qcomDriver) {
		return probeFailed(kind, c.Name, "no QCOM LED with HW pattern support")
	}
	return nil
}

func (l *qcomLED) Probe() error {
	if err := probeQcomHardware(l.kind, l.cand); err != nil {
		return err
	}
	return l.genericLED.Probe()
}

// StartPeriodic programs hw_pattern and falls back to the software
// pattern if the hardware rejects it.
func (l *qcomLED) StartPeriodic(pct, freq uint32) error {
	if freq == 0 {
		return l.startSoftwarePattern(pct, freq)
	}

	peak, err := l.scaledBrightness(pct)
	if err != nil {
		return err
	}

	t := min(halfPeriodMs(freq), qcomMaxPauseMs)
	pattern := fmt.Sprintf("0 %d 0 0 %d %d %d 0\n", t, peak, t, peak)

	if err := l.writeHWPattern(pattern); err != nil {
		l.logger.Warn("Falling back to software pattern", "error", err)
		return l.startSoftwarePattern(pct, freq)
	}
	l.logger.Debug("Blink pattern", "freq_mhz", freq, "brightness_pct", pct, "pattern", pattern, "hw", true)
	return nil
}

func (l *qcomLED) writeHWPattern(pattern string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := writeAttr(l.cand.Path, attrRepeat, repeatForever); err != nil {
		return err
	}
	return writeAttr(l.cand.Path, attrHWPattern, pattern)
}

// qcomMulticolorLED is a multicolor LED on an LPG block. Colors go
// through multi_intensity, patterns through the hardware.
type qcomMulticolorLED struct {
	multicolorLED
	hw       *qcomLED
	hwLogger *slog.Logger
}

func newQcomMulticolor(c Candidate, logger *slog.Logger) *qcomMulticolorLED {
	return &qcomMulticolorLED{
		multicolorLED: multicolorLED{base: newBase(c, KindQcomMulticolor, priorityQcomMulticolor, logger)},
		hwLogger:      logger,
	}
}

func (l *qcomMulticolorLED) Probe() error {
	hw := newQcom(l.cand, l.hwLogger)
	if err := hw.Probe(); err != nil {
		return &ProbeError{Kind: l.kind, Name: l.cand.Name, Reason: "hardware pattern probe failed", Cause: err}
	}
	if err := l.multicolorLED.Probe(); err != nil {
		return err
	}
	// Share the lock so color and pattern writes stay serialized.
	hw.mu = l.mu
	l.hw = hw
	return nil
}

func (l *qcomMulticolorLED) StartPeriodic(pct, freq uint32) error {
	return l.hw.StartPeriodic(pct, freq)
}
