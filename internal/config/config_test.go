package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type daemonOptions struct {
	Config string

	NatsPort       int      `toml:"nats.port" env:"NATS_PORT"`
	NatsHost       string   `toml:"nats.host" env:"NATS_HOST"`
	APIEnabled     bool     `toml:"api.enabled" env:"API_ENABLED"`
	AllowImportant []string `toml:"feedback.allow_important" env:"ALLOW_IMPORTANT"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleConfig = `
[nats]
host = "127.0.0.1"
port = 4300

[api]
enabled = true

[logging]
level = "debug"
format = "json"
manager = "warn"

[logging.modules]
led = "error"

[feedback]
profile = "quiet"
allow_important = ["org.example.Alarm"]
prefer_flash = true
sound_theme = "custom"

[feedback.apps."org.example.Chat"]
profile = "silent"
`

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	tests := []struct {
		name string
		env  map[string]string
		flag string
		want daemonOptions
	}{
		{
			name: "file",
			want: daemonOptions{NatsPort: 4300, NatsHost: "127.0.0.1", APIEnabled: true, AllowImportant: []string{"org.example.Alarm"}},
		},
		{
			name: "env overrides file",
			env:  map[string]string{"FEEDBACKD_NATS_PORT": "4400", "FEEDBACKD_ALLOW_IMPORTANT": "a, b,"},
			want: daemonOptions{NatsPort: 4400, NatsHost: "127.0.0.1", APIEnabled: true, AllowImportant: []string{"a", "b"}},
		},
		{
			name: "flag overrides env",
			env:  map[string]string{"FEEDBACKD_NATS_PORT": "4400"},
			flag: "4500",
			want: daemonOptions{NatsPort: 4500, NatsHost: "127.0.0.1", APIEnabled: true, AllowImportant: []string{"org.example.Alarm"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &daemonOptions{Config: path}

			var cmd *cobra.Command
			if tt.flag != "" {
				cmd = &cobra.Command{Use: "test"}
				cmd.Flags().IntVar(&opts.NatsPort, "nats-port", 0, "")
				if err := cmd.Flags().Set("nats-port", tt.flag); err != nil {
					t.Fatal(err)
				}
			}

			if err := LoadConfig(opts, cmd); err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.want.Config = path
			if !reflect.DeepEqual(*opts, tt.want) {
				t.Errorf("LoadConfig() = %+v, want %+v", *opts, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &daemonOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), NatsPort: 4223}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if opts.NatsPort != 4223 {
		t.Errorf("NatsPort = %d, want default kept", opts.NatsPort)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &daemonOptions{Config: writeConfig(t, "[nats\nport = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Error("LoadConfig() accepted invalid TOML")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	cfg := LoadLoggingConfig(writeConfig(t, sampleConfig))

	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("level/format = %s/%s", cfg.Level, cfg.Format)
	}
	want := map[string]string{"manager": "warn", "led": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	def := LoadLoggingConfig("")
	if def.Level != "info" || def.Format != "text" {
		t.Errorf("defaults = %+v", def)
	}
}

func TestLoadFeedbackConfig(t *testing.T) {
	cfg, err := LoadFeedbackConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadFeedbackConfig() error = %v", err)
	}

	if cfg.Profile != "quiet" || !cfg.PreferFlash || cfg.SoundTheme != "custom" {
		t.Errorf("LoadFeedbackConfig() = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowImportant, []string{"org.example.Alarm"}) {
		t.Errorf("AllowImportant = %v", cfg.AllowImportant)
	}
	if got := cfg.AppProfiles(); !reflect.DeepEqual(got, map[string]string{"org.example.Chat": "silent"}) {
		t.Errorf("AppProfiles() = %v", got)
	}
}

func TestLoadFeedbackConfigDefaults(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"no path", ""},
		{"missing file", filepath.Join(t.TempDir(), "absent.toml")},
		{"no section", writeConfig(t, "[nats]\nport = 1\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFeedbackConfig(tt.path)
			if err != nil {
				t.Fatalf("LoadFeedbackConfig() error = %v", err)
			}
			if cfg.Profile != DefaultProfile || cfg.Apps == nil {
				t.Errorf("LoadFeedbackConfig() = %+v, want defaults", cfg)
			}
		})
	}
}

func TestLoadFeedbackConfigEnv(t *testing.T) {
	t.Setenv("FEEDBACKD_FEEDBACK_PROFILE", "silent")
	t.Setenv("FEEDBACKD_FEEDBACK_PREFER_FLASH", "true")

	cfg, err := LoadFeedbackConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadFeedbackConfig() error = %v", err)
	}
	if cfg.Profile != "silent" || !cfg.PreferFlash {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadFeedbackConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown profile", "[feedback]\nprofile = \"loud\"\n"},
		{"unknown app profile", "[feedback.apps.\"org.example.X\"]\nprofile = \"noisy\"\n"},
		{"bad toml", "[feedback\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFeedbackConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("LoadFeedbackConfig() accepted invalid config")
			}
		})
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":         "port",
		"NatsPort":     "nats-port",
		"LoggingLevel": "logging-level",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}
