package led

import (
	"fmt"
	"log/slog"
	"sync"
)

// Kind names a driver variant.
type Kind string

const (
	KindQcomMulticolor Kind = "qcom-multicolor"
	KindQcom           Kind = "qcom"
	KindMulticolor     Kind = "multicolor"
	KindFlash          Kind = "flash"
	KindGeneric        Kind = "generic"
)

// Variant priorities. Vendor drivers rank above generic ones since they
// drive patterns in hardware.
const (
	priorityQcomMulticolor = 60
	priorityMulticolor     = 50
	priorityQcom           = 20
	priorityGeneric        = 10
	priorityFlash          = 5
)

// Device is one probed LED.
type Device interface {
	// Probe inspects the hardware and fails if this variant cannot drive it.
	Probe() error
	Name() string
	Path() string
	Kind() Kind
	Priority() int
	MaxBrightness() uint32
	SupportsColor(color Color) bool
	// SetColor selects the color used by the next pattern. rgb is only
	// consulted for ColorRGB.
	SetColor(color Color, rgb *RGB) error
	// StartPeriodic blinks the LED at freq mHz up to maxBrightnessPct of
	// its maximum brightness. A zero freq means constant light.
	StartPeriodic(maxBrightnessPct, freq uint32) error
	SetBrightness(brightness uint32) error
}

// base holds the state shared by all variants. Hardware writes are
// serialized through mu so a device runs at most one pattern at a time.
type base struct {
	cand          Candidate
	kind          Kind
	priority      int
	maxBrightness uint32
	color         Color
	mu            *sync.Mutex
	logger        *slog.Logger
}

func newBase(c Candidate, kind Kind, priority int, logger *slog.Logger) base {
	return base{
		cand:     c,
		kind:     kind,
		priority: priority,
		mu:       &sync.Mutex{},
		logger:   logger.With("led", c.Name, "kind", string(kind)),
	}
}

func (b *base) Name() string          { return b.cand.Name }
func (b *base) Path() string          { return b.cand.Path }
func (b *base) Kind() Kind            { return b.kind }
func (b *base) Priority() int         { return b.priority }
func (b *base) MaxBrightness() uint32 { return b.maxBrightness }

// SupportsColor reports the single color found at probe time.
func (b *base) SupportsColor(color Color) bool {
	return b.color == color
}

// SetColor is a no-op for single color LEDs.
func (b *base) SetColor(color Color, _ *RGB) error {
	if !color.valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedColor, color)
	}
	return nil
}

// SetBrightness writes the brightness attribute.
func (b *base) SetBrightness(brightness uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setBrightnessLocked(brightness)
}

func (b *base) setBrightnessLocked(brightness uint32) error {
	if err := writeUintAttr(b.cand.Path, attrBrightness, brightness); err != nil {
		b.logger.Warn("Failed to set brightness", "error", err)
		return err
	}
	return nil
}

// scaledBrightness returns pct percent of the maximum brightness.
func (b *base) scaledBrightness(pct uint32) (uint32, error) {
	if pct > 100 {
		return 0, fmt.Errorf("%w: %d", ErrBrightnessRange, pct)
	}
	return uint32(uint64(b.maxBrightness) * uint64(pct) / 100), nil
}

// halfPeriodMs returns half of the period of freq (in mHz) in milliseconds.
func halfPeriodMs(freq uint32) uint32 {
	return uint32(1000.0 * 1000.0 / float64(freq) / 2.0)
}

// startSoftwarePattern drives the LED through the pattern trigger,
// or sets a constant brightness when freq is zero.
func (b *base) startSoftwarePattern(pct, freq uint32) error {
	peak, err := b.scaledBrightness(pct)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if freq == 0 {
		b.logger.Debug("Constant light", "brightness_pct", pct)
		return b.setBrightnessLocked(peak)
	}

	t := halfPeriodMs(freq)
	pattern := fmt.Sprintf("0 %d %d %d\n", t, peak, t)
	b.logger.Debug("Blink pattern", "freq_mhz", freq, "brightness_pct", pct, "pattern", pattern)
	if err := writeAttr(b.cand.Path, attrPattern, pattern); err != nil {
		b.logger.Warn("Failed to set LED pattern", "error", err)
		return err
	}
	return nil
}

// probeMaxBrightness reads max_brightness and rejects zero.
func (b *base) probeMaxBrightness() error {
	brightness := readUintAttr(b.cand.Path, attrMaxBrightness)
	if brightness == 0 {
		return probeFailed(b.kind, b.cand.Name, "no max_brightness")
	}
	b.maxBrightness = brightness
	return nil
}

var allColors = [...]Color{ColorWhite, ColorRed, ColorGreen, ColorBlue, ColorRGB, ColorFlash}

// SupportedColors lists the colors d can be driven with.
func SupportedColors(d Device) []Color {
	var colors []Color
	for _, c := range allColors {
		if d.SupportsColor(c) {
			colors = append(colors, c)
		}
	}
	return colors
}
