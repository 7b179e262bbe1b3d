package led

import (
	"errors"
	"log/slog"
)

// variants lists the driver constructors from most to least specific.
var variants = []struct {
	kind Kind
	new  func(Candidate, *slog.Logger) Device
}{
	{KindQcomMulticolor, func(c Candidate, l *slog.Logger) Device { return newQcomMulticolor(c, l) }},
	{KindQcom, func(c Candidate, l *slog.Logger) Device { return newQcom(c, l) }},
	{KindMulticolor, func(c Candidate, l *slog.Logger) Device { return newMulticolor(c, l) }},
	{KindFlash, func(c Candidate, l *slog.Logger) Device { return newFlash(c, l) }},
	{KindGeneric, func(c Candidate, l *slog.Logger) Device { return newGeneric(c, l) }},
}

// Probe runs the variant chain against c and returns the first device
// whose probe succeeds. Each attempt starts from a fresh value, so a
// rejected variant leaves nothing behind. The returned error joins the
// ProbeError of every variant.
func Probe(c Candidate, logger *slog.Logger) (Device, error) {
	var failures []error
	for _, v := range variants {
		dev := v.new(c, logger)
		err := dev.Probe()
		if err == nil {
			logger.Debug("Discovered LED", "led", c.Name, "kind", string(v.kind))
			return dev, nil
		}
		failures = append(failures, err)
	}
	logger.Debug("Unable to determine LED driver", "led", c.Name)
	return nil, errors.Join(failures...)
}
