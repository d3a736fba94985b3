package audio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/genricoloni/turntable/internal/domain"
	gowav "github.com/go-audio/wav"
	"go.uber.org/zap"
)

// Prober measures media durations from the encoded data
type Prober struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
}

// NewProber creates a prober that reads media through fetcher
func NewProber(logger *zap.Logger, fetcher domain.Fetcher) *Prober {
	return &Prober{logger: logger, fetcher: fetcher}
}

// Probe returns the duration in seconds of the media at url
func (p *Prober) Probe(ctx context.Context, url string) (float64, error) {
	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch media: %w", err)
	}

	switch sniff(data, url) {
	case formatWAV:
		// The header is usually enough; odd chunk layouts fall through to a full decode
		d, err := gowav.NewDecoder(bytes.NewReader(data)).Duration()
		if err == nil && d > 0 {
			return d.Seconds(), nil
		}
		p.logger.Debug("WAV header carries no duration, decoding", zap.String("url", url), zap.Error(err))
		return decodedLength(data, url)

	case formatMP3:
		return decodedLength(data, url)
	}

	return 0, fmt.Errorf("%s: %w", url, ErrUnsupportedFormat)
}

func decodedLength(data []byte, url string) (float64, error) {
	streamer, f, err := decode(data, url)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()
	return f.SampleRate.D(streamer.Len()).Seconds(), nil
}
