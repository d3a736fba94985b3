package mpris

import (
	"github.com/godbus/dbus/v5"
)

// root implements org.mpris.MediaPlayer2
type root struct{}

func (root) Raise() *dbus.Error { return nil }
func (root) Quit() *dbus.Error  { return nil }

// player implements org.mpris.MediaPlayer2.Player on top of the engine intents.
// The turntable has no pause: lifting the needle is a stop.
type player struct {
	p *Publisher
}

func (pl player) Play() *dbus.Error {
	pl.p.controller.Play()
	return nil
}

func (pl player) Pause() *dbus.Error {
	pl.p.controller.StopPlayback()
	return nil
}

func (pl player) PlayPause() *dbus.Error {
	if pl.p.controller.Snapshot().Playing {
		pl.p.controller.StopPlayback()
	} else {
		pl.p.controller.Play()
	}
	return nil
}

func (pl player) Stop() *dbus.Error {
	pl.p.controller.StopPlayback()
	return nil
}

func (pl player) Next() *dbus.Error {
	pl.p.controller.Next()
	return nil
}

func (pl player) Previous() *dbus.Error {
	pl.p.controller.Previous()
	return nil
}

// Seek moves relative to the current position, in microseconds
func (pl player) Seek(offset int64) *dbus.Error {
	pl.p.controller.Skip(float64(offset) / 1e6)
	return nil
}

// SetPosition jumps to an absolute position, in microseconds, if trackID is still current
func (pl player) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	snap := pl.p.controller.Snapshot()
	if trackID != trackPath(snap) || !(snap.Duration > 0) {
		return nil
	}
	pl.p.controller.SeekRatio(float64(position) / 1e6 / snap.Duration)
	return nil
}

func (pl player) OpenUri(string) *dbus.Error {
	return dbus.MakeFailedError(errNotSupported)
}

// properties implements org.freedesktop.DBus.Properties for both MPRIS interfaces
type properties struct {
	p *Publisher
}

func (pr properties) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	all, derr := pr.GetAll(iface)
	if derr != nil {
		return dbus.Variant{}, derr
	}
	v, ok := all[prop]
	if !ok {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", []any{prop})
	}
	return v, nil
}

func (pr properties) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case rootIface:
		return rootProperties(), nil
	case playerIface:
		return playerProperties(pr.p.controller.Snapshot()), nil
	}
	return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []any{iface})
}

func (pr properties) Set(iface, prop string, _ dbus.Variant) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly", []any{iface + "." + prop})
}
