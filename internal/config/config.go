package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	defaultSettingsPath = "~/.config/turntable/settings.json"
	defaultPlaylistPath = "~/.config/turntable/playlist.json"
	defaultOutputDir    = "/tmp/turntable"
)

// AppConfig holds process-level configuration read from the environment
type AppConfig struct {
	logger       *zap.Logger
	settingsPath string
	playlistPath string
	outputDir    string
	labelURL     string
}

// NewAppConfig creates a new application configuration instance
func NewAppConfig(logger *zap.Logger) *AppConfig {
	settingsPath := expandPath(envOr("TURNTABLE_SETTINGS_PATH", defaultSettingsPath))
	playlistPath := expandPath(envOr("TURNTABLE_PLAYLIST", defaultPlaylistPath))
	outputDir := expandPath(envOr("TURNTABLE_OUTPUT_DIR", defaultOutputDir))
	labelURL := os.Getenv("TURNTABLE_LABEL_URL")

	logger.Info("Configuration loaded",
		zap.String("settingsPath", settingsPath),
		zap.String("playlistPath", playlistPath),
		zap.String("outputDir", outputDir),
		zap.String("labelURL", labelURL))

	return &AppConfig{
		logger:       logger,
		settingsPath: settingsPath,
		playlistPath: playlistPath,
		outputDir:    outputDir,
		labelURL:     labelURL,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// expandPath resolves environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// GetSettingsPath returns the persisted settings file location
func (c *AppConfig) GetSettingsPath() string {
	return c.settingsPath
}

// GetPlaylistPath returns the track list file location
func (c *AppConfig) GetPlaylistPath() string {
	return c.playlistPath
}

// GetOutputDir returns the directory for rendered assets
func (c *AppConfig) GetOutputDir() string {
	return c.outputDir
}

// GetLabelURL returns the configured center-label locator, possibly empty
func (c *AppConfig) GetLabelURL() string {
	return c.labelURL
}
