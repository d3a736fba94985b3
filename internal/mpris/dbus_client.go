package mpris

import (
	"github.com/godbus/dbus/v5"
)

// DBusClient defines the interface for D-Bus operations.
// This abstraction allows us to mock D-Bus interactions in tests.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/turntable/internal/mpris DBusClient
type DBusClient interface {
	// Close closes the D-Bus connection
	Close() error

	// RequestName claims a well-known bus name; it reports whether we became its primary owner
	RequestName(name string) (bool, error)

	// Export publishes the methods of v on path under the interface name iface
	Export(v any, path dbus.ObjectPath, iface string) error

	// Emit sends a signal from path
	// name: The fully qualified member (e.g., "org.freedesktop.DBus.Properties.PropertiesChanged")
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// StdDBusClient is the real implementation using godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// Close closes the D-Bus connection
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

// RequestName claims a well-known bus name without queueing behind another owner
func (c *StdDBusClient) RequestName(name string) (bool, error) {
	reply, err := c.conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return false, err
	}
	return reply == dbus.RequestNameReplyPrimaryOwner, nil
}

// Export publishes the methods of v
func (c *StdDBusClient) Export(v any, path dbus.ObjectPath, iface string) error {
	return c.conn.Export(v, path, iface)
}

// Emit sends a signal
func (c *StdDBusClient) Emit(path dbus.ObjectPath, name string, values ...any) error {
	return c.conn.Emit(path, name, values...)
}
