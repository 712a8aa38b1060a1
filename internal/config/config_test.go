package config

import (
	"io"
	"testing"
	"time"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

func clearSpeechEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION", "GOOGLE_TTS_ACCESS_TOKEN", "GOOGLE_CLOUD_PROJECT"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearSpeechEnv(t)
	cfg, err := Load(nil, io.Discard)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != logger.LevelNormal || cfg.Backend != BackendAuto || cfg.AlertWindow != time.Minute || !cfg.Prefetch || cfg.FrameDistance != 10 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if got := cfg.ResolveBackend(); got != BackendNone {
		t.Fatalf("expected none without credentials, got %s", got)
	}
	if cfg.EventLog != "csv_logs/security_log.csv" || cfg.SettingsPath != "config/system_config.json" {
		t.Fatalf("unexpected storage paths %q %q", cfg.EventLog, cfg.SettingsPath)
	}
}

func TestLoadEventLogOff(t *testing.T) {
	clearSpeechEnv(t)
	cfg, err := Load([]string{"-event-log", "off", "-settings", "/tmp/station.json"}, io.Discard)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventLog != "" || cfg.SettingsPath != "/tmp/station.json" {
		t.Fatalf("unexpected storage config %q %q", cfg.EventLog, cfg.SettingsPath)
	}
}

func TestLoadFlags(t *testing.T) {
	clearSpeechEnv(t)
	cfg, err := Load([]string{"-verbose", "-speech", "google", "-no-alerts", "-alert-window", "5m", "-frame-distance", "-1"}, io.Discard)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != logger.LevelVerbose || !cfg.NoAlerts || cfg.AlertWindow != 5*time.Minute || cfg.FrameDistance != -1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ResolveBackend() != BackendGoogle {
		t.Fatalf("explicit backend not honoured")
	}

	if _, err := Load([]string{"-speech", "festival"}, io.Discard); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadLogLevelFromEnv(t *testing.T) {
	clearSpeechEnv(t)
	t.Setenv(EnvLogLevel, "debug")
	cfg, err := Load(nil, io.Discard)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != logger.LevelVerbose {
		t.Fatalf("expected verbose from env, got %s", cfg.LogLevel)
	}

	cfg, err = Load([]string{"-quiet"}, io.Discard)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != logger.LevelOff {
		t.Fatalf("flag should override env, got %s", cfg.LogLevel)
	}

	t.Setenv(EnvLogLevel, "loud")
	if _, err := Load(nil, io.Discard); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestParseCooldowns(t *testing.T) {
	p, err := ParseCooldowns("face_detected=10s, camera_start=2m")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p[domain.CategoryFaceDetected] != 10*time.Second || p[domain.CategoryCameraStart] != 2*time.Minute {
		t.Fatalf("overrides not applied: %v", p)
	}
	if p[domain.CategoryRemoveAccessory] != 8*time.Second {
		t.Fatalf("untouched category changed: %v", p)
	}

	for _, bad := range []string{"face_detected", "door_open=5s", "camera_start=soon", "camera_start=-1s"} {
		if _, err := ParseCooldowns(bad); err == nil {
			t.Errorf("ParseCooldowns(%q): expected error", bad)
		}
	}
}

func TestResolveBackendPrefersAzure(t *testing.T) {
	clearSpeechEnv(t)
	t.Setenv("AZURE_SPEECH_KEY", "k")
	t.Setenv("AZURE_SPEECH_REGION", "westeurope")
	t.Setenv("GOOGLE_TTS_ACCESS_TOKEN", "tok")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj")

	cfg, err := Load([]string{"-quiet"}, io.Discard)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != logger.LevelOff {
		t.Fatalf("expected quiet to win, got %s", cfg.LogLevel)
	}
	if got := cfg.ResolveBackend(); got != BackendAzure {
		t.Fatalf("expected azure, got %s", got)
	}
}
