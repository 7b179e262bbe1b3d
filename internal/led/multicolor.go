package led

import (
	"fmt"
	"log/slog"
)

// slotUnused marks a multi_index entry that names no known channel.
const slotUnused = -1

// multicolorLED drives an LED of the multicolor class through
// multi_intensity. slots holds, per physical slot, which logical channel
// (0 red, 1 green, 2 blue) it carries.
type multicolorLED struct {
	base
	slots [3]int
}

func newMulticolor(c Candidate, logger *slog.Logger) *multicolorLED {
	return &multicolorLED{base: newBase(c, KindMulticolor, priorityMulticolor, logger)}
}

func (l *multicolorLED) Probe() error {
	index := readListAttr(l.cand.Path, attrMultiIndex)
	if index == nil {
		return probeFailed(l.kind, l.cand.Name, "no multicolor LED")
	}
	if len(index) != 3 {
		return probeFailed(l.kind, l.cand.Name, fmt.Sprintf("no multicolor RGB LED (%d channels)", len(index)))
	}
	if err := l.probeMaxBrightness(); err != nil {
		return err
	}

	for i, name := range index {
		switch name {
		case "red":
			l.slots[i] = 0
		case "green":
			l.slots[i] = 1
		case "blue":
			l.slots[i] = 2
		default:
			l.slots[i] = slotUnused
			l.logger.Warn("Unsupported LED color index", "slot", i, "name", name)
		}
	}
	l.color = ColorRGB
	l.logger.Debug("LED usable as multicolor", "path", l.cand.Path, "index", index)
	return nil
}

// SupportsColor accepts every color but flash.
func (l *multicolorLED) SupportsColor(color Color) bool {
	switch color {
	case ColorWhite, ColorRed, ColorGreen, ColorBlue, ColorRGB:
		return true
	default:
		return false
	}
}

// intensity returns the multi_intensity vector in physical slot order.
func (l *multicolorLED) intensity(color Color, rgb *RGB) ([3]uint32, error) {
	var logical [3]uint32
	full := l.maxBrightness

	switch color {
	case ColorWhite:
		logical = [3]uint32{full, full, full}
	case ColorRed:
		logical = [3]uint32{full, 0, 0}
	case ColorGreen:
		logical = [3]uint32{0, full, 0}
	case ColorBlue:
		logical = [3]uint32{0, 0, full}
	case ColorRGB:
		if rgb == nil {
			return [3]uint32{}, fmt.Errorf("%w: rgb without value", ErrUnsupportedColor)
		}
		logical = [3]uint32{rgb.R, rgb.G, rgb.B}
	default:
		return [3]uint32{}, fmt.Errorf("%w: %s", ErrUnsupportedColor, color)
	}

	var physical [3]uint32
	for i, ch := range l.slots {
		if ch != slotUnused {
			physical[i] = logical[ch]
		}
	}
	return physical, nil
}

// SetColor writes full brightness and then the channel intensities.
func (l *multicolorLED) SetColor(color Color, rgb *RGB) error {
	physical, err := l.intensity(color, rgb)
	if err != nil {
		l.logger.Warn("Unhandled color", "color", color.String())
		return err
	}

	value := fmt.Sprintf("%d %d %d\n", physical[0], physical[1], physical[2])
	l.logger.Debug("Multicolor intensity", "value", value)

	l.mu.Lock()
	defer l.mu.Unlock()

	// A failed brightness write is already logged; the intensity write
	// decides the outcome.
	_ = l.setBrightnessLocked(l.maxBrightness)
	if err := writeAttr(l.cand.Path, attrMultiIntensity, value); err != nil {
		l.logger.Warn("Failed to set multi intensity", "error", err)
		return err
	}
	return nil
}

func (l *multicolorLED) StartPeriodic(pct, freq uint32) error {
	return l.startSoftwarePattern(pct, freq)
}
