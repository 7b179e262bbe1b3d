package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/feedbackd/internal/types"
)

// DefaultProfile is the global profile when none is configured.
const DefaultProfile = "full"

// AppConfig holds per-application settings.
type AppConfig struct {
	Profile string `toml:"profile" json:"profile"`
}

// FeedbackConfig is the reloadable [feedback] section.
type FeedbackConfig struct {
	Profile        string               `toml:"profile" json:"profile" env:"FEEDBACK_PROFILE"`
	AllowImportant []string             `toml:"allow_important" json:"allow_important" env:"FEEDBACK_ALLOW_IMPORTANT"`
	PreferFlash    bool                 `toml:"prefer_flash" json:"prefer_flash" env:"FEEDBACK_PREFER_FLASH"`
	SoundTheme     string               `toml:"sound_theme" json:"sound_theme" env:"FEEDBACK_SOUND_THEME"`
	Theme          string               `toml:"theme" json:"theme" env:"FEEDBACK_THEME"`
	Player         string               `toml:"player" json:"player" env:"FEEDBACK_PLAYER"`
	Apps           map[string]AppConfig `toml:"apps" json:"apps"`
}

// DefaultFeedbackConfig returns the settings used without a config file.
func DefaultFeedbackConfig() FeedbackConfig {
	return FeedbackConfig{
		Profile: DefaultProfile,
		Apps:    make(map[string]AppConfig),
	}
}

// AppProfiles maps app ids to their configured profile names.
func (c FeedbackConfig) AppProfiles() map[string]string {
	out := make(map[string]string, len(c.Apps))
	for id, app := range c.Apps {
		if app.Profile != "" {
			out[id] = app.Profile
		}
	}
	return out
}

// Validate checks that every profile name is known.
func (c FeedbackConfig) Validate() error {
	var errs []error
	if types.ParseLevel(c.Profile) == types.LevelUnknown {
		errs = append(errs, fmt.Errorf("feedback.profile: unknown profile %q", c.Profile))
	}
	ids := make([]string, 0, len(c.Apps))
	for id := range c.Apps {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p := c.Apps[id].Profile
		if p != "" && types.ParseLevel(p) == types.LevelUnknown {
			errs = append(errs, fmt.Errorf("feedback.apps.%q.profile: unknown profile %q", id, p))
		}
	}
	return errors.Join(errs...)
}

// LoadFeedbackConfig reads the [feedback] section of path and applies
// FEEDBACKD_FEEDBACK_* overrides. A missing file yields the defaults.
func LoadFeedbackConfig(path string) (FeedbackConfig, error) {
	cfg := DefaultFeedbackConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			var file struct {
				Feedback FeedbackConfig `toml:"feedback"`
			}
			file.Feedback = cfg
			if err := toml.Unmarshal(data, &file); err != nil {
				return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
			}
			cfg = file.Feedback
		}
	}

	applyEnv(reflect.ValueOf(&cfg).Elem(), nil)
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.Apps == nil {
		cfg.Apps = make(map[string]AppConfig)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
