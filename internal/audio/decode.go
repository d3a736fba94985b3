// Package audio plays tracks and stingers through the system speaker and
// measures media durations.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

var (
	// ErrUnsupportedFormat is returned for media that is neither MP3 nor WAV
	ErrUnsupportedFormat = errors.New("unsupported media format")
	// ErrUnavailable is returned when the build has no audio output
	ErrUnavailable = errors.New("audio output unavailable")
	// ErrNoClip is returned when a stinger or the loaded track has no locator
	ErrNoClip = errors.New("no clip configured")
)

type format int

const (
	formatUnknown format = iota
	formatMP3
	formatWAV
)

// sniff identifies the container from its magic bytes, falling back to the locator's extension
func sniff(data []byte, locator string) format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return formatWAV
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return formatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return formatMP3
	}

	switch strings.ToLower(path.Ext(locator)) {
	case ".mp3":
		return formatMP3
	case ".wav":
		return formatWAV
	}
	return formatUnknown
}

// decode opens an in-memory media file as a seekable stream
func decode(data []byte, locator string) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)

	switch sniff(data, locator) {
	case formatMP3:
		streamer, f, err = mp3.Decode(nopCloser{bytes.NewReader(data)})
	case formatWAV:
		streamer, f, err = wav.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("%s: %w", locator, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", locator, err)
	}
	return streamer, f, nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser while keeping Seek.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
