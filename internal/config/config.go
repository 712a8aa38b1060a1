// Package config collects command-line flags and environment settings
// for the sentinel binary. Environment variables may come from a .env
// file in the working directory.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/sentinel/internal/alert"
	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
	"github.com/hammamikhairi/sentinel/internal/storage"
	"github.com/hammamikhairi/sentinel/internal/voice"
)

// EnvLogLevel sets the default log level when neither -verbose nor
// -quiet is given.
const EnvLogLevel = "SENTINEL_LOG_LEVEL"

// Speech backends.
const (
	BackendAuto   = "auto"
	BackendAzure  = "azure"
	BackendGoogle = "google"
	BackendNone   = "none"
)

// Config is the resolved runtime configuration.
type Config struct {
	LogLevel    logger.Level
	LogFile     string // "stderr" logs to the console
	Backend     string
	AssetDir    string // parent dir for synthesized assets, "" = system temp
	NoAlerts    bool
	AlertWindow time.Duration
	// FrameDistance is the pHash distance under which two captures count
	// as the same person for alert suppression; negative disables it.
	FrameDistance int
	Prefetch      bool
	// Cooldowns is the stock policy with any -cooldown overrides applied.
	Cooldowns domain.CooldownPolicy
	// EventLog is the screening CSV log, "" when logging is off.
	EventLog     string
	SettingsPath string

	AzureKey    string
	AzureRegion string
	Voice       string // overrides the backend's default voice
}

// Load reads the .env file (if present, without overriding variables
// already set) and parses args, which exclude the program name.
func Load(args []string, stderr io.Writer) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("sentinel", flag.ContinueOnError)
	fs.SetOutput(stderr)

	verbose := fs.Bool("verbose", false, "enable verbose/debug logging")
	quiet := fs.Bool("quiet", false, "disable all logging")
	logFile := fs.String("log-file", ".sentinel-logs/sentinel.log", "file to write logs to (use \"stderr\" to log to console)")
	backend := fs.String("speech", BackendAuto, "speech backend: auto, azure, google or none")
	assetDir := fs.String("asset-dir", "", "directory for synthesized prompt audio (default: system temp)")
	noAlerts := fs.Bool("no-alerts", false, "disable email/SMS/call alerts even if credentials are set")
	alertWindow := fs.Duration("alert-window", 60*time.Second, "minimum time between alerts for the same subject")
	frameDistance := fs.Int("frame-distance", alert.DefaultMaxFrameDistance, "max perceptual-hash distance for two captures to count as the same person (-1 disables)")
	prefetch := fs.Bool("prefetch", true, "synthesize stock prompts at startup")
	voiceName := fs.String("voice", "", "override the TTS voice name")
	cooldowns := fs.String("cooldown", "", "override prompt cooldowns, e.g. face_detected=10s,camera_start=2m")
	eventLog := fs.String("event-log", storage.DefaultEventLogPath, "CSV file recording every screening outcome (\"off\" disables it)")
	settingsPath := fs.String("settings", storage.DefaultSettingsPath, "JSON file holding the saved recognition threshold")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch *backend {
	case BackendAuto, BackendAzure, BackendGoogle, BackendNone:
	default:
		return nil, fmt.Errorf("unknown speech backend %q", *backend)
	}

	policy, err := ParseCooldowns(*cooldowns)
	if err != nil {
		return nil, err
	}

	if *eventLog == "off" {
		*eventLog = ""
	}

	level := logger.LevelNormal
	if name := os.Getenv(EnvLogLevel); name != "" {
		l, ok := logger.ParseLevel(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown log level %q", EnvLogLevel, name)
		}
		level = l
	}
	if *verbose {
		level = logger.LevelVerbose
	}
	if *quiet {
		level = logger.LevelOff
	}

	return &Config{
		LogLevel:      level,
		LogFile:       *logFile,
		Backend:       *backend,
		AssetDir:      *assetDir,
		NoAlerts:      *noAlerts,
		AlertWindow:   *alertWindow,
		FrameDistance: *frameDistance,
		Prefetch:      *prefetch,
		AzureKey:      os.Getenv(voice.EnvAzureSpeechKey),
		AzureRegion:   os.Getenv(voice.EnvAzureSpeechRegion),
		Voice:         *voiceName,
		Cooldowns:     policy,
		EventLog:      *eventLog,
		SettingsPath:  *settingsPath,
	}, nil
}

// ParseCooldowns applies comma-separated category=duration overrides to
// the stock cooldown policy. An empty string yields the stock policy.
func ParseCooldowns(s string) (domain.CooldownPolicy, error) {
	policy := domain.DefaultCooldownPolicy()
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("cooldown %q: want category=duration", item)
		}
		c, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("cooldown %q: %w", item, err)
		}
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("cooldown %q: invalid duration", item)
		}
		policy[c] = d
	}
	return policy, nil
}

// ResolveBackend picks the speech backend. In auto mode Azure wins when
// its credentials are set, then Google, else speech is off.
func (c *Config) ResolveBackend() string {
	if c.Backend != BackendAuto {
		return c.Backend
	}
	if c.AzureKey != "" && c.AzureRegion != "" {
		return BackendAzure
	}
	if os.Getenv(voice.EnvGoogleTTSToken) != "" && os.Getenv(voice.EnvGoogleProject) != "" {
		return BackendGoogle
	}
	return BackendNone
}
