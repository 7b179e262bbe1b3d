// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout when it is connected to a terminal, pipe or file,
// and to the systemd journal when journald is reachable. Both are used
// when both are available.
//
// Initialize once at startup, and again whenever the config file is
// reloaded:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"led":   "debug",
//			"sound": "warn",
//		},
//	})
//
// Then fetch a logger per package:
//
//	logger := logging.GetLogger("led")
//	logger.Debug("Probed device", "name", name, "kind", kind)
//
// Journal entries carry SYSLOG_IDENTIFIER=feedbackd and every attribute
// as an upper-case field:
//
//	journalctl -t feedbackd MODULE=manager
//	journalctl -t feedbackd EVENT_ID=42
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	led = "debug"
//	nats = "warn"
package logging
