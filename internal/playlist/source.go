// Package playlist loads the track list the turntable plays.
package playlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/genricoloni/turntable/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Source reads the playlist from a JSON file holding an array of
// {"id", "title", "artist", "url"} objects. The list is always replaced as a whole.
type Source struct {
	logger *zap.Logger
	path   string
}

// NewSource creates a source for the configured playlist file
func NewSource(logger *zap.Logger, cfg domain.Config) *Source {
	return &Source{logger: logger, path: cfg.GetPlaylistPath()}
}

// Path returns the playlist file location
func (s *Source) Path() string {
	return s.path
}

// Load reads and normalizes the playlist. A missing file is an empty playlist.
func (s *Source) Load(ctx context.Context) ([]domain.Track, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Playlist file not found, starting empty", zap.String("path", s.path))
		return []domain.Track{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	var entries []domain.Track
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse playlist %s: %w", s.path, err)
	}

	base := filepath.Dir(s.path)
	tracks := make([]domain.Track, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry.URL = strings.TrimSpace(entry.URL)
		if entry.URL == "" {
			s.logger.Warn("Dropping playlist entry without a url",
				zap.Int("position", i),
				zap.String("title", entry.Title))
			continue
		}
		tracks = append(tracks, s.normalize(base, entry))
	}

	s.logger.Info("Playlist loaded",
		zap.String("path", s.path),
		zap.Int("tracks", len(tracks)))
	return tracks, nil
}

func (s *Source) normalize(base string, t domain.Track) domain.Track {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	path, local := localPath(t.URL)
	if !local {
		return t
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
		t.URL = path
	}

	if t.Title == "" || t.Artist == "" {
		s.fillFromTags(path, &t)
	}
	if t.Title == "" {
		t.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return t
}

// fillFromTags reads missing title and artist from the file's embedded tags
func (s *Source) fillFromTags(path string, t *domain.Track) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Debug("Cannot open track for tags", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		s.logger.Debug("No readable tags", zap.String("path", path), zap.Error(err))
		return
	}

	if t.Title == "" {
		t.Title = strings.TrimSpace(m.Title())
	}
	if t.Artist == "" {
		t.Artist = strings.TrimSpace(m.Artist())
	}
}

// localPath reports whether url names a file on disk
func localPath(url string) (string, bool) {
	switch {
	case strings.HasPrefix(url, "file://"):
		return strings.TrimPrefix(url, "file://"), true
	case strings.Contains(url, "://"):
		return "", false
	default:
		return url, true
	}
}
