package feedback

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smazurov/feedbackd/internal/types"
)

// Feedback types understood in theme files.
const (
	TypeSound = "sound"
	TypeLED   = "led"
)

// Haptic feedbacks are accepted in themes but not run.
const vibraPrefix = "vibra-"

//go:embed default-theme.yaml
var defaultThemeYAML []byte

// ThemeFeedback is one feedback entry of a theme profile.
type ThemeFeedback struct {
	EventName string `yaml:"event-name" json:"event-name"`
	Type      string `yaml:"type" json:"type"`

	// sound
	Effect    string `yaml:"effect,omitempty" json:"effect,omitempty"`
	MediaRole string `yaml:"media-role,omitempty" json:"media-role,omitempty"`

	// led
	Color         string `yaml:"color,omitempty" json:"color,omitempty"`
	MaxBrightness uint32 `yaml:"max-brightness,omitempty" json:"max-brightness,omitempty"`
	Frequency     uint32 `yaml:"frequency,omitempty" json:"frequency,omitempty"`
}

// ThemeProfile groups the feedbacks allowed at one level.
type ThemeProfile struct {
	Name      string          `yaml:"name" json:"name"`
	Feedbacks []ThemeFeedback `yaml:"feedbacks" json:"feedbacks"`
}

// Theme maps events to feedbacks per profile.
type Theme struct {
	Name     string         `yaml:"name" json:"name"`
	Profiles []ThemeProfile `yaml:"profiles" json:"profiles"`

	// Path is the file the theme was loaded from, empty for the default.
	Path string `yaml:"-" json:"-"`
}

// LeveledFeedback is a theme feedback with the level of its profile.
type LeveledFeedback struct {
	ThemeFeedback
	Level types.Level
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() *Theme {
	t, err := ParseTheme(defaultThemeYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in theme: %v", err))
	}
	return t
}

// LoadTheme reads and validates a theme file. An empty path yields the
// built-in theme.
func LoadTheme(path string) (*Theme, error) {
	if path == "" {
		return DefaultTheme(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(ErrCodeInvalidTheme, "failed to read theme", err)
	}
	t, err := ParseTheme(data)
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}

// ParseTheme decodes and validates YAML (or JSON) theme data.
func ParseTheme(data []byte) (*Theme, error) {
	var t Theme
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, newError(ErrCodeInvalidTheme, "failed to parse theme", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks profile names and feedback entries.
func (t *Theme) Validate() error {
	if t.Name == "" {
		return newError(ErrCodeInvalidTheme, "theme has no name", nil)
	}
	seen := make(map[string]bool)
	for _, p := range t.Profiles {
		if types.ParseLevel(p.Name) == types.LevelUnknown {
			return newError(ErrCodeInvalidTheme, fmt.Sprintf("unknown profile %q", p.Name), nil)
		}
		if seen[p.Name] {
			return newError(ErrCodeInvalidTheme, fmt.Sprintf("duplicate profile %q", p.Name), nil)
		}
		seen[p.Name] = true

		for i, fb := range p.Feedbacks {
			if err := fb.validate(); err != nil {
				return newError(ErrCodeInvalidTheme, fmt.Sprintf("profile %s feedback %d", p.Name, i), err)
			}
		}
	}
	return nil
}

func (f ThemeFeedback) validate() error {
	if f.EventName == "" {
		return fmt.Errorf("missing event-name")
	}
	switch {
	case f.Type == TypeSound:
		if f.Effect == "" {
			return fmt.Errorf("sound feedback for %s has no effect", f.EventName)
		}
	case f.Type == TypeLED:
		if f.Color == "" {
			return fmt.Errorf("led feedback for %s has no color", f.EventName)
		}
		if f.MaxBrightness > 100 {
			return fmt.Errorf("led feedback for %s: max-brightness %d exceeds 100", f.EventName, f.MaxBrightness)
		}
	case strings.HasPrefix(f.Type, vibraPrefix):
	default:
		return fmt.Errorf("unknown feedback type %q", f.Type)
	}
	return nil
}

// Lookup returns the feedbacks for event from every profile at or below
// level, lowest level first.
func (t *Theme) Lookup(event string, level types.Level) []LeveledFeedback {
	var out []LeveledFeedback
	for l := types.LevelSilent; l <= level; l++ {
		for _, p := range t.Profiles {
			if types.ParseLevel(p.Name) != l {
				continue
			}
			for _, fb := range p.Feedbacks {
				if fb.EventName == event {
					out = append(out, LeveledFeedback{ThemeFeedback: fb, Level: l})
				}
			}
		}
	}
	return out
}

// Events returns the distinct event names the theme knows about.
func (t *Theme) Events() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range t.Profiles {
		for _, fb := range p.Feedbacks {
			if !seen[fb.EventName] {
				seen[fb.EventName] = true
				out = append(out, fb.EventName)
			}
		}
	}
	return out
}
