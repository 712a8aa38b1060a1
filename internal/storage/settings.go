package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// DefaultSettingsPath is where operator settings are saved unless
// configured.
const DefaultSettingsPath = "config/system_config.json"

// SettingsStore keeps domain.Settings in a JSON file.
type SettingsStore struct {
	path string
	log  *logger.Logger
	now  func() time.Time
}

// NewSettingsStore creates a store backed by path. Nothing is read until
// Load.
func NewSettingsStore(path string, log *logger.Logger) *SettingsStore {
	return &SettingsStore{path: path, log: log, now: time.Now}
}

// Path returns the backing file.
func (s *SettingsStore) Path() string { return s.path }

// Load reads the saved settings. A missing file yields the defaults and
// no error. An unreadable or out-of-range file yields the defaults and
// the error, so callers can warn and carry on.
func (s *SettingsStore) Load() (domain.Settings, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug("no settings at %s, using defaults", s.path)
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.DefaultSettings(), err
	}

	settings := domain.DefaultSettings()
	if err := sonic.Unmarshal(raw, &settings); err != nil {
		return domain.DefaultSettings(), fmt.Errorf("parsing %s: %w", s.path, err)
	}
	if err := domain.ValidateThreshold(settings.RecognitionThreshold); err != nil {
		return domain.DefaultSettings(), fmt.Errorf("%s: %w", s.path, err)
	}
	s.log.Debug("loaded settings from %s (threshold=%.2f, last updated %s)",
		s.path, settings.RecognitionThreshold, settings.LastUpdated)
	return settings, nil
}

// Save validates and writes settings, stamping LastUpdated. The file is
// replaced atomically.
func (s *SettingsStore) Save(settings domain.Settings) (domain.Settings, error) {
	if err := domain.ValidateThreshold(settings.RecognitionThreshold); err != nil {
		return settings, err
	}
	settings.LastUpdated = s.now().Format(time.ANSIC)

	raw, err := sonic.ConfigStd.MarshalIndent(settings, "", "  ")
	if err != nil {
		return settings, fmt.Errorf("encoding settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return settings, err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return settings, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return settings, err
	}
	s.log.Info("settings saved to %s (threshold=%.2f)", s.path, settings.RecognitionThreshold)
	return settings, nil
}
