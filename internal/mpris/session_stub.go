//go:build !linux

package mpris

import (
	"errors"
)

// NewStdDBusClient returns an error indicating MPRIS is not supported on this platform
func NewStdDBusClient() (DBusClient, error) {
	return nil, errors.New("MPRIS publishing is only supported on Linux systems")
}
