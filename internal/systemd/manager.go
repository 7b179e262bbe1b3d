package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DefaultUnit is the unit name the daemon ships with.
const DefaultUnit = "feedbackd.service"

// Manager reads unit state over D-Bus.
type Manager struct {
	conn *dbus.Conn
	unit string
}

// NewManager connects to the user bus for unit. An empty unit selects
// DefaultUnit.
func NewManager(ctx context.Context, unit string) (*Manager, error) {
	if unit == "" {
		unit = DefaultUnit
	}
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Manager{conn: conn, unit: unit}, nil
}

// Unit returns the watched unit name.
func (m *Manager) Unit() string {
	return m.unit
}

// ServiceStatus returns the unit's ActiveState, e.g. "active".
func (m *Manager) ServiceStatus(ctx context.Context) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, m.unit, "ActiveState")
	if err != nil {
		return "", err
	}
	state, ok := prop.Value.Value().(string)
	if !ok {
		return prop.Value.String(), nil
	}
	return state, nil
}

// Close releases the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
