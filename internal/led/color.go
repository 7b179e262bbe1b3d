package led

import (
	"fmt"
	"strconv"
)

// Color is a color or pseudo color an LED can be driven with.
type Color int

const (
	ColorWhite Color = iota
	ColorRed
	ColorGreen
	ColorBlue
	ColorRGB
	ColorFlash
)

var colorNames = [...]string{
	ColorWhite: "white",
	ColorRed:   "red",
	ColorGreen: "green",
	ColorBlue:  "blue",
	ColorRGB:   "rgb",
	ColorFlash: "flash",
}

func (c Color) String() string {
	if c.valid() {
		return colorNames[c]
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

func (c Color) valid() bool {
	return c >= ColorWhite && c <= ColorFlash
}

// colorFromName maps a lower-case capability name to a Color.
func colorFromName(name string) (Color, bool) {
	for i, n := range colorNames {
		if n == name {
			return Color(i), true
		}
	}
	return 0, false
}

// RGB is an explicit color triple. Components are written to the
// hardware as given, so callers scale them to the device range.
type RGB struct {
	R, G, B uint32
}

// ParseColor converts a theme color spec into a Color and the RGB value
// to use when the device can show arbitrary colors. Accepted specs are
// the names white, red, green and blue, and hex strings "#RRGGBB".
// Anything else yields white with ok set to false.
func ParseColor(spec string) (color Color, rgb RGB, ok bool) {
	switch spec {
	case "red":
		return ColorRed, RGB{R: 255}, true
	case "green":
		return ColorGreen, RGB{G: 255}, true
	case "blue":
		return ColorBlue, RGB{B: 255}, true
	case "white":
		return ColorWhite, RGB{R: 255, G: 255, B: 255}, true
	}

	if rgb, ok := parseHexColor(spec); ok {
		return ColorRGB, rgb, true
	}
	return ColorWhite, RGB{R: 255, G: 255, B: 255}, false
}

func parseHexColor(spec string) (RGB, bool) {
	if len(spec) != len("#11AA00") || spec[0] != '#' {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(spec[1:], 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{
		R: uint32(v>>16) & 0xff,
		G: uint32(v>>8) & 0xff,
		B: uint32(v) & 0xff,
	}, true
}
