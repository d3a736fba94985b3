//go:build linux

package mpris

import (
	"github.com/godbus/dbus/v5"
)

// NewStdDBusClient creates a real D-Bus client connected to the session bus
func NewStdDBusClient() (DBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}
