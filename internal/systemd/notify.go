package systemd

import (
	"errors"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier reports daemon state to the service manager. Outside a
// systemd unit every call is a no-op.
type Notifier struct {
	logger *slog.Logger
	notify func(state string) (bool, error)
}

// NewNotifier creates a notifier that writes to $NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

// Ready tells systemd the daemon finished starting.
func (n *Notifier) Ready() error {
	return n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() error {
	return n.send(daemon.SdNotifyStopping)
}

// Reloading brackets a config reload. Call the returned func when done.
func (n *Notifier) Reloading() func() {
	if err := n.send(daemon.SdNotifyReloading); err != nil {
		return func() {}
	}
	return func() { _ = n.send(daemon.SdNotifyReady) }
}

// Status sets the free-form status line shown by systemctl.
func (n *Notifier) Status(status string) error {
	return n.send("STATUS=" + status)
}

func (n *Notifier) send(state string) error {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return errors.Join(ErrNotify, err)
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
	return nil
}

// ErrNotify wraps failures writing to the notify socket.
var ErrNotify = errors.New("systemd: notify failed")
