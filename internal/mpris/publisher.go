// Package mpris exposes the turntable on the session bus as an MPRIS media player,
// so desktop media keys and widgets can drive it.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/genricoloni/turntable/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	busName      = "org.mpris.MediaPlayer2.turntable"
	objectPath   = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootIface    = "org.mpris.MediaPlayer2"
	playerIface  = "org.mpris.MediaPlayer2.Player"
	propsIface   = "org.freedesktop.DBus.Properties"
	trackPathFmt = "/org/genricoloni/turntable/track/%d"
)

var errNotSupported = errors.New("operation not supported by the turntable")

// Publisher mirrors the engine's snapshots onto D-Bus and forwards
// transport calls back to the engine as intents
type Publisher struct {
	logger     *zap.Logger
	controller domain.Controller
	dial       func() (DBusClient, error)

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	conn    DBusClient     // Interface for testability
	wg      sync.WaitGroup // Tracks the forwarding goroutine
	last    domain.Snapshot
}

// NewPublisher creates a publisher for the given controller
func NewPublisher(logger *zap.Logger, controller domain.Controller) *Publisher {
	return &Publisher{
		logger:     logger,
		controller: controller,
		dial:       NewStdDBusClient,
	}
}

// Start claims the bus name, exports the player and begins forwarding changes.
// A missing session bus is logged and tolerated: the turntable works without MPRIS.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	conn, err := p.dial()
	if err != nil {
		p.logger.Warn("Session bus unavailable, MPRIS disabled", zap.Error(err))
		return nil
	}

	if err := p.export(conn); err != nil {
		if cerr := conn.Close(); cerr != nil {
			p.logger.Warn("Failed to close D-Bus connection", zap.Error(cerr))
		}
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.conn = conn
	p.cancel = cancel
	p.running = true
	p.last = p.controller.Snapshot()

	p.wg.Add(1)
	go p.forward(runCtx)

	p.logger.Info("MPRIS publisher started", zap.String("name", busName))
	return nil
}

func (p *Publisher) export(conn DBusClient) error {
	owner, err := conn.RequestName(busName)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if !owner {
		return fmt.Errorf("bus name %s already taken", busName)
	}

	exports := []struct {
		v     any
		iface string
	}{
		{root{}, rootIface},
		{player{p}, playerIface},
		{properties{p}, propsIface},
	}
	for _, e := range exports {
		if err := conn.Export(e.v, objectPath, e.iface); err != nil {
			return fmt.Errorf("failed to export %s: %w", e.iface, err)
		}
	}
	return nil
}

// Stop stops forwarding and releases the bus connection
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	// Wait for the forwarding goroutine before closing the connection it emits on
	p.logger.Debug("Waiting for MPRIS forwarding to finish")
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close D-Bus connection: %w", err)
	}

	p.logger.Info("MPRIS publisher stopped")
	return nil
}

// forward turns snapshot changes into PropertiesChanged signals
func (p *Publisher) forward(ctx context.Context) {
	defer p.wg.Done()

	updates := p.controller.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				p.logger.Info("Engine updates channel closed")
				return
			}
			p.handleSnapshot(snap)
		}
	}
}

// handleSnapshot emits the player properties that differ from the last snapshot
func (p *Publisher) handleSnapshot(snap domain.Snapshot) {
	p.mu.Lock()
	prev := p.last
	p.last = snap
	conn := p.conn
	p.mu.Unlock()

	changed := make(map[string]dbus.Variant)
	if status(prev) != status(snap) {
		changed["PlaybackStatus"] = dbus.MakeVariant(status(snap))
	}
	if prev.Index != snap.Index || trackID(prev) != trackID(snap) || lengthMicros(prev) != lengthMicros(snap) {
		changed["Metadata"] = dbus.MakeVariant(metadata(snap))
		changed["CanPlay"] = dbus.MakeVariant(snap.Track != nil)
		changed["CanSeek"] = dbus.MakeVariant(snap.Duration > 0)
	}
	if len(changed) == 0 || conn == nil {
		return
	}

	if err := conn.Emit(objectPath, propsIface+".PropertiesChanged", playerIface, changed, []string{}); err != nil {
		p.logger.Warn("Failed to emit PropertiesChanged", zap.Error(err))
		return
	}
	p.logger.Debug("MPRIS properties changed",
		zap.Int("count", len(changed)),
		zap.Stringer("phase", snap.Phase))
}

// status maps the playback phase onto MPRIS PlaybackStatus.
// The tonearm being on the record counts as playing, runout included.
func status(s domain.Snapshot) string {
	if s.Playing {
		return "Playing"
	}
	return "Stopped"
}

func trackID(s domain.Snapshot) string {
	if s.Track == nil {
		return ""
	}
	return s.Track.ID
}

func lengthMicros(s domain.Snapshot) int64 {
	return int64(s.Duration * 1e6)
}

func trackPath(s domain.Snapshot) dbus.ObjectPath {
	if s.Track == nil {
		return dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	}
	return dbus.ObjectPath(fmt.Sprintf(trackPathFmt, s.Index))
}

func metadata(s domain.Snapshot) map[string]dbus.Variant {
	m := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackPath(s)),
	}
	if s.Track == nil {
		return m
	}

	m["xesam:title"] = dbus.MakeVariant(s.Track.Title)
	m["xesam:url"] = dbus.MakeVariant(s.Track.URL)
	if s.Track.Artist != "" {
		m["xesam:artist"] = dbus.MakeVariant([]string{s.Track.Artist})
	}
	if s.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(lengthMicros(s))
	}
	return m
}

// playerProperties returns the org.mpris.MediaPlayer2.Player properties for s
func playerProperties(s domain.Snapshot) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(status(s)),
		"LoopStatus":     dbus.MakeVariant("None"),
		"Rate":           dbus.MakeVariant(1.0),
		"Shuffle":        dbus.MakeVariant(false),
		"Metadata":       dbus.MakeVariant(metadata(s)),
		"Volume":         dbus.MakeVariant(1.0),
		"Position":       dbus.MakeVariant(int64(s.Elapsed * 1e6)),
		"MinimumRate":    dbus.MakeVariant(1.0),
		"MaximumRate":    dbus.MakeVariant(1.0),
		"CanGoNext":      dbus.MakeVariant(true),
		"CanGoPrevious":  dbus.MakeVariant(true),
		"CanPlay":        dbus.MakeVariant(s.Track != nil),
		"CanPause":       dbus.MakeVariant(true),
		"CanSeek":        dbus.MakeVariant(s.Duration > 0),
		"CanControl":     dbus.MakeVariant(true),
	}
}

func rootProperties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"CanQuit":             dbus.MakeVariant(false),
		"CanRaise":            dbus.MakeVariant(false),
		"HasTrackList":        dbus.MakeVariant(false),
		"Identity":            dbus.MakeVariant("Turntable"),
		"SupportedUriSchemes": dbus.MakeVariant([]string{"file", "http", "https"}),
		"SupportedMimeTypes":  dbus.MakeVariant([]string{"audio/mpeg", "audio/wav"}),
	}
}
