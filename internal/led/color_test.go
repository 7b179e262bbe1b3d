package led

import "testing"

func TestParseColor(t *testing.T) {
	tests := []struct {
		spec   string
		color  Color
		rgb    RGB
		wantOK bool
	}{
		{"red", ColorRed, RGB{R: 255}, true},
		{"green", ColorGreen, RGB{G: 255}, true},
		{"blue", ColorBlue, RGB{B: 255}, true},
		{"white", ColorWhite, RGB{R: 255, G: 255, B: 255}, true},
		{"#11AA00", ColorRGB, RGB{R: 0x11, G: 0xaa, B: 0x00}, true},
		{"#ff8000", ColorRGB, RGB{R: 0xff, G: 0x80, B: 0x00}, true},
		{"#12345", ColorWhite, RGB{R: 255, G: 255, B: 255}, false},
		{"#GG0000", ColorWhite, RGB{R: 255, G: 255, B: 255}, false},
		{"magenta", ColorWhite, RGB{R: 255, G: 255, B: 255}, false},
		{"", ColorWhite, RGB{R: 255, G: 255, B: 255}, false},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			color, rgb, ok := ParseColor(tt.spec)
			if color != tt.color || rgb != tt.rgb || ok != tt.wantOK {
				t.Errorf("ParseColor(%q) = %s, %+v, %v; want %s, %+v, %v",
					tt.spec, color, rgb, ok, tt.color, tt.rgb, tt.wantOK)
			}
		})
	}
}

func TestColorString(t *testing.T) {
	for c := ColorWhite; c <= ColorFlash; c++ {
		got, ok := colorFromName(c.String())
		if !ok || got != c {
			t.Errorf("colorFromName(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if Color(99).String() != "Color(99)" {
		t.Errorf("invalid color String() = %q", Color(99).String())
	}
}
