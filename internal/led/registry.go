package led

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Registry holds the probed LEDs ordered by descending priority. It is
// built once; devices appearing later are not picked up.
type Registry struct {
	devices []Device
	logger  *slog.Logger
	warned  sync.Once
}

// NewRegistry probes every candidate udev marked for feedbackd. It fails
// if enumeration fails or no candidate could be probed.
func NewRegistry(e Enumerator, logger *slog.Logger) (*Registry, error) {
	candidates, err := e.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("enumerate LEDs: %w", err)
	}

	var devices []Device
	for _, c := range candidates {
		if !c.Marked() {
			continue
		}
		dev, err := Probe(c, logger)
		if err != nil {
			logger.Debug("Ignoring LED", "led", c.Name, "error", err)
			continue
		}
		devices = append(devices, dev)
	}

	return newRegistry(devices, logger)
}

func newRegistry(devices []Device, logger *slog.Logger) (*Registry, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no device probed successfully", ErrNoUsableDevice)
	}

	sorted := slices.Clone(devices)
	slices.SortStableFunc(sorted, func(a, b Device) int {
		return b.Priority() - a.Priority()
	})

	for _, dev := range sorted {
		logger.Info("Using LED", "led", dev.Name(), "kind", string(dev.Kind()), "priority", dev.Priority(),
			"max_brightness", dev.MaxBrightness())
	}
	return &Registry{devices: sorted, logger: logger}, nil
}

// Devices returns the devices in priority order.
func (r *Registry) Devices() []Device {
	return slices.Clone(r.devices)
}

// Select returns the highest ranked device supporting color. Without an
// exact match it falls back to the first device that is not a flash.
func (r *Registry) Select(color Color) (Device, error) {
	for _, dev := range r.devices {
		if dev.SupportsColor(color) {
			return dev, nil
		}
	}
	for _, dev := range r.devices {
		if !dev.SupportsColor(ColorFlash) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoUsableDevice, color)
}

// Has reports whether Select would find a device for color.
func (r *Registry) Has(color Color) bool {
	_, err := r.Select(color)
	return err == nil
}

// StartPeriodic sets the color on the selected device and starts a blink
// pattern on it. When the fallback device lacks color but can show
// arbitrary colors, rgb is used instead.
func (r *Registry) StartPeriodic(color Color, rgb *RGB, maxBrightnessPct, freq uint32) error {
	dev, err := r.Select(color)
	if err != nil {
		r.warnOnce(err)
		return err
	}
	if !dev.SupportsColor(color) && rgb != nil && dev.SupportsColor(ColorRGB) {
		color = ColorRGB
	}
	if err := dev.SetColor(color, rgb); err != nil {
		return err
	}
	return dev.StartPeriodic(maxBrightnessPct, freq)
}

// Stop turns off the device Select resolves for color.
func (r *Registry) Stop(color Color) error {
	dev, err := r.Select(color)
	if err != nil {
		r.warnOnce(err)
		return err
	}
	return dev.SetBrightness(0)
}

func (r *Registry) warnOnce(err error) {
	r.warned.Do(func() {
		r.logger.Warn("No usable LED found", "error", err)
	})
}
