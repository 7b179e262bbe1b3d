package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/feedbackd/internal/api"
	"github.com/smazurov/feedbackd/internal/config"
	"github.com/smazurov/feedbackd/internal/events"
	"github.com/smazurov/feedbackd/internal/feedback"
	"github.com/smazurov/feedbackd/internal/led"
	"github.com/smazurov/feedbackd/internal/logging"
	inats "github.com/smazurov/feedbackd/internal/nats"
	"github.com/smazurov/feedbackd/internal/sound"
	"github.com/smazurov/feedbackd/internal/systemd"
)

const shutdownTimeout = 5 * time.Second

// daemon owns the running components. Components that failed to start
// stay nil.
type daemon struct {
	opts   *Options
	logger *slog.Logger

	notifier   *systemd.Notifier
	unit       *systemd.Manager
	registry   *led.Registry
	tracker    *sound.Tracker
	manager    *feedback.Manager
	natsServer *inats.Server
	service    *inats.Service
	apiServer  *api.Server
	watcher    *config.Watcher[config.FeedbackConfig]

	stopOnce sync.Once
	done     chan struct{}
}

func newDaemon(opts *Options, logger *slog.Logger) *daemon {
	return &daemon{
		opts:     opts,
		logger:   logger,
		notifier: systemd.NewNotifier(logging.GetLogger("systemd")),
		done:     make(chan struct{}),
	}
}

func managerConfig(c config.FeedbackConfig) feedback.Config {
	return feedback.Config{
		Profile:        c.Profile,
		AllowImportant: c.AllowImportant,
		AppProfiles:    c.AppProfiles(),
		PreferFlash:    c.PreferFlash,
	}
}

func soundTheme(c config.FeedbackConfig) string {
	if c.SoundTheme == "" {
		return sound.FallbackTheme
	}
	return c.SoundTheme
}

func (d *daemon) start() error {
	fbConfig, err := config.LoadFeedbackConfig(d.opts.Config)
	if err != nil {
		return fmt.Errorf("load feedback config: %w", err)
	}
	theme, err := feedback.LoadTheme(fbConfig.Theme)
	if err != nil {
		return err
	}
	d.logger.Info("Loaded theme", "name", theme.Name, "path", theme.Path, "events", len(theme.Events()))

	var leds feedback.LEDs
	d.registry, err = led.NewRegistry(led.NewSysfsEnumerator(), logging.GetLogger("led"))
	if err != nil {
		d.logger.Warn("No LED support", "error", err)
	} else {
		leds = d.registry
	}

	var sounds feedback.Sounds
	if t, soundErr := d.newTracker(fbConfig); soundErr != nil {
		d.logger.Warn("No sound support", "error", soundErr)
	} else {
		d.tracker = t
		sounds = t
	}

	bus := events.New()
	d.manager, err = feedback.NewManager(managerConfig(fbConfig), theme, leds, sounds, bus, logging.GetLogger("manager"))
	if err != nil {
		return err
	}

	d.natsServer = inats.NewServer(inats.ServerOptions{
		Host:   d.opts.NatsHost,
		Port:   d.opts.NatsPort,
		Logger: logging.GetLogger("nats"),
	})
	if err := d.natsServer.Start(); err != nil {
		return fmt.Errorf("start NATS server: %w", err)
	}
	d.service = inats.NewService(d.natsServer.ClientURL(), d.manager, bus, logging.GetLogger("nats"))
	if err := d.service.Start(); err != nil {
		return fmt.Errorf("start NATS service: %w", err)
	}

	if d.opts.APIEnabled {
		d.startAPI(bus)
	}

	d.watcher = config.NewConfigWatcher(d.opts.Config, config.LoadFeedbackConfig, logging.GetLogger("config"))
	d.watcher.OnReload(d.reload)
	if err := d.watcher.Start(); err != nil {
		d.logger.Warn("Config reload disabled", "path", d.opts.Config, "error", err)
		d.watcher = nil
	}

	_ = d.notifier.Ready()
	_ = d.notifier.Status(fmt.Sprintf("profile %s, %d LEDs", d.manager.Profile(), d.ledCount()))
	d.logger.Info("feedbackd ready", "nats", d.natsServer.ClientURL(), "profile", d.manager.Profile())
	return nil
}

func (d *daemon) newTracker(c config.FeedbackConfig) (*sound.Tracker, error) {
	command := c.Player
	if command == "" {
		detected, err := sound.DetectPlayerCommand()
		if err != nil {
			return nil, err
		}
		command = detected
	}
	logger := logging.GetLogger("sound")
	player, err := sound.NewExecPlayer(command, logger)
	if err != nil {
		return nil, err
	}
	return sound.NewTracker(player, sound.NewThemeResolver(), soundTheme(c), logger), nil
}

func (d *daemon) startAPI(bus *events.Bus) {
	opts := &api.Options{
		AuthUsername:      d.opts.AuthUsername,
		AuthPassword:      d.opts.AuthPassword,
		Manager:           d.manager,
		EventBus:          bus,
		PrometheusHandler: promhttp.Handler(),
	}
	if d.registry != nil {
		opts.LEDs = d.registry
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if unit, err := systemd.NewManager(ctx, ""); err != nil {
		d.logger.Debug("systemd user bus unavailable", "error", err)
	} else {
		d.unit = unit
		opts.Systemd = unit
	}

	d.apiServer = api.NewServer(opts)
	go func() {
		if err := d.apiServer.Start(d.opts.APIAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("HTTP API failed", "addr", d.opts.APIAddr, "error", err)
		}
	}()
}

// reload applies a changed config file. The theme is re-read as well.
func (d *daemon) reload(c config.FeedbackConfig) {
	done := d.notifier.Reloading()
	defer done()

	if err := d.manager.ApplyConfig(managerConfig(c)); err != nil {
		d.logger.Warn("Rejected config reload", "error", err)
		return
	}
	if d.tracker != nil {
		d.tracker.SetTheme(soundTheme(c))
	}

	theme, err := feedback.LoadTheme(c.Theme)
	if err != nil {
		d.logger.Warn("Keeping previous theme", "path", c.Theme, "error", err)
		return
	}
	d.manager.SetTheme(theme)
	d.logger.Info("Config reloaded", "profile", d.manager.Profile(), "theme", theme.Name)
}

func (d *daemon) ledCount() int {
	if d.registry == nil {
		return 0
	}
	return len(d.registry.Devices())
}

// wait blocks until stop has finished.
func (d *daemon) wait() {
	<-d.done
}

// stop shuts components down in reverse dependency order. Running
// events are ended before the IPC service goes away so clients see
// their ended notifications.
func (d *daemon) stop() {
	d.stopOnce.Do(func() {
		defer close(d.done)
		_ = d.notifier.Stopping()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if d.watcher != nil {
			_ = d.watcher.Stop()
		}
		if d.apiServer != nil {
			if err := d.apiServer.Stop(ctx); err != nil {
				d.logger.Warn("Error stopping HTTP API", "error", err)
			}
		}
		if d.manager != nil {
			if err := d.manager.Close(ctx); err != nil {
				d.logger.Warn("Events still running at shutdown", "error", err)
			}
		}
		if d.service != nil {
			d.service.Stop()
		}
		if d.tracker != nil {
			d.tracker.Close()
		}
		if d.natsServer != nil {
			d.natsServer.Stop()
		}
		if d.unit != nil {
			d.unit.Close()
		}
		d.logger.Info("feedbackd stopped")
	})
}
