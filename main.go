package main

import (
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/feedbackd/cmd"
	"github.com/smazurov/feedbackd/internal/config"
	"github.com/smazurov/feedbackd/internal/logging"
	"github.com/smazurov/feedbackd/internal/version"
)

// Options for the daemon. Flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"/etc/feedbackd/config.toml"`

	// IPC settings
	NatsHost string `help:"NATS listen address" default:"127.0.0.1" toml:"nats.host" env:"NATS_HOST"`
	NatsPort int    `help:"NATS listen port" default:"4223" toml:"nats.port" env:"NATS_PORT"`

	// API settings
	APIEnabled   bool   `help:"Serve the HTTP status API" default:"true" toml:"api.enabled" env:"API_ENABLED"`
	APIAddr      string `help:"HTTP API listen address" default:"127.0.0.1:8091" toml:"api.addr" env:"API_ADDR"`
	AuthUsername string `help:"Basic auth username" default:"" toml:"api.username" env:"API_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"api.password" env:"API_PASSWORD"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

func main() {
	var cli humacli.CLI
	var d *daemon

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := config.LoadLoggingConfig(opts.Config)
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		logging.Initialize(loggingConfig)

		d = newDaemon(opts, logging.GetLogger("main"))

		hooks.OnStart(func() {
			if err := d.start(); err != nil {
				d.logger.Error("Failed to start feedbackd", "error", err)
				d.stop()
				os.Exit(1)
			}
			d.wait()
		})

		hooks.OnStop(d.stop)
	})

	root := cli.Root()
	root.Use = "feedbackd"
	root.Short = "Haptic, audio and LED feedback daemon"
	root.Version = version.String()

	root.AddCommand(cmd.CreateTriggerCmd())
	root.AddCommand(cmd.CreateLEDCtrlCmd())
	root.AddCommand(cmd.CreateLEDsCmd())
	root.AddCommand(cmd.CreateValidateCmd())

	cli.Run()
}
