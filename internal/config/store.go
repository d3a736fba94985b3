package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store persists the settings blob in a small JSON key-value file.
// Other keys in the file are preserved on save.
type Store struct {
	logger *zap.Logger
	path   string
	mu     sync.Mutex
}

// NewStore creates a settings store backed by the file at path
func NewStore(logger *zap.Logger, path string) *Store {
	return &Store{logger: logger, path: path}
}

// NewStoreFromConfig creates a store at the configured settings path
func NewStoreFromConfig(logger *zap.Logger, cfg *AppConfig) *Store {
	return NewStore(logger, cfg.GetSettingsPath())
}

// Path returns the backing file location
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted settings. Any problem reading or interpreting
// the blob yields the built-in defaults; it is never reported to the caller.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("No persisted settings, using defaults", zap.String("path", s.path))
		} else {
			s.logger.Warn("Discarding unreadable settings", zap.String("path", s.path), zap.Error(err))
		}
		return DefaultSettings()
	}

	raw, ok := entries[StorageKey]
	if !ok {
		s.logger.Debug("Settings key not present, using defaults", zap.String("key", StorageKey))
		return DefaultSettings()
	}

	// Peek at the version before decoding the full shape
	var tag struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		s.logger.Warn("Discarding corrupt settings blob", zap.Error(err))
		return DefaultSettings()
	}
	if tag.Version != SettingsVersion {
		s.logger.Warn("Discarding settings with incompatible version",
			zap.Int("stored", tag.Version),
			zap.Int("expected", SettingsVersion))
		return DefaultSettings()
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("Discarding corrupt settings blob", zap.Error(err))
		return DefaultSettings()
	}
	return settings.sanitize()
}

// Save writes the settings under the storage key, stamping the current version
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		// Unreadable files are replaced wholesale
		entries = make(map[string]json.RawMessage)
	}

	settings.Version = SettingsVersion
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	entries[StorageKey] = raw

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	// Write-then-rename so a watcher never observes a half-written file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}

	s.logger.Info("Settings saved", zap.String("path", s.path))
	return nil
}

func (s *Store) readEntries() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid settings file: %w", err)
	}
	return entries, nil
}
