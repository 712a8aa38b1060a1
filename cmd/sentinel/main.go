// Sentinel speaks prompts and sends threat alerts for a screening station.
//
// Usage:
//
//	sentinel [-verbose] [-quiet] [-speech auto|azure|google|none] [-no-alerts]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hammamikhairi/sentinel/internal/alert"
	"github.com/hammamikhairi/sentinel/internal/command"
	"github.com/hammamikhairi/sentinel/internal/config"
	"github.com/hammamikhairi/sentinel/internal/display"
	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
	"github.com/hammamikhairi/sentinel/internal/screening"
	"github.com/hammamikhairi/sentinel/internal/storage"
	"github.com/hammamikhairi/sentinel/internal/voice"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logOut, closeLog := openLogOutput(cfg.LogFile, os.Stderr)
	defer closeLog()

	// Third-party libs log through the stdlib package; keep that out of
	// the console too.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(cfg.LogLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := display.NewConsole(os.Stdout)

	speaker, throttle, player := buildSpeaker(cfg, log.Named("voice"))
	dispatcher := buildDispatcher(cfg, log.Named("alert"))

	storeLog := log.Named("storage")
	settingsStore := storage.NewSettingsStore(cfg.SettingsPath, storeLog)
	settings, err := settingsStore.Load()
	if err != nil {
		log.Error("loading settings, using defaults: %v", err)
	}
	events := buildEventLog(cfg, storeLog)

	opts := []screening.Option{screening.WithRecognitionThreshold(settings.RecognitionThreshold)}
	if dispatcher != nil {
		opts = append(opts, screening.WithAlerts(dispatcher))
	}
	app := &cliApp{
		console:    console,
		parser:     command.NewParser(log.Named("command")),
		throttle:   throttle,
		dispatcher: dispatcher,
		settings:   settingsStore,
		log:        log,
	}
	if events != nil {
		app.events = events
		opts = append(opts, screening.WithEventLog(events))
	}
	app.announcer = screening.NewAnnouncer(&consoleSpeaker{
		next:    speaker,
		console: console,
		muted:   throttle == nil,
	}, log.Named("screening"), opts...)

	console.Println(display.RenderBanner())
	console.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	console.Println()

	if throttle != nil && cfg.Prefetch {
		throttle.Prefetch(ctx, screening.StockLines()...)
	}

	app.run(ctx, os.Stdin)

	// Interrupted: cut the current prompt short instead of waiting it out.
	if ctx.Err() != nil && player != nil {
		player.Stop()
	}
	app.announcer.Wait()
	if throttle != nil {
		if err := throttle.Close(); err != nil {
			log.Error("cleaning up voice assets: %v", err)
		}
	}
	log.Info("sentinel stopped")
}

// openLogOutput opens the log file for appending. Problems are reported
// on stderr and logging falls back to stderr.
func openLogOutput(path string, stderr io.Writer) (io.Writer, func()) {
	if path == "" || path == "stderr" {
		return stderr, func() {}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(stderr, "warning: could not create log dir %s: %v (falling back to stderr)\n", dir, err)
			return stderr, func() {}
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return stderr, func() {}
	}
	return f, func() { f.Close() }
}

// buildSpeaker picks the TTS backend. The returned throttle is nil when
// speech is disabled; the player is nil unless an audio device opened.
func buildSpeaker(cfg *config.Config, log *logger.Logger) (domain.Speaker, *voice.Throttle, *voice.Player) {
	var synth domain.Synthesizer

	switch cfg.ResolveBackend() {
	case config.BackendAzure:
		if cfg.AzureKey == "" || cfg.AzureRegion == "" {
			log.Error("azure speech selected but %s/%s are not set", voice.EnvAzureSpeechKey, voice.EnvAzureSpeechRegion)
			return voice.NewMute(log), nil, nil
		}
		var azOpts []voice.AzureOption
		if cfg.Voice != "" {
			azOpts = append(azOpts, voice.WithVoice(cfg.Voice))
		}
		az := voice.NewAzureClient(cfg.AzureKey, cfg.AzureRegion, log, azOpts...)
		log.Info("TTS enabled (azure, voice=%s, region=%s)", az.Voice(), cfg.AzureRegion)
		synth = az
	case config.BackendGoogle:
		var gOpts []voice.GoogleOption
		if cfg.Voice != "" {
			gOpts = append(gOpts, voice.WithGoogleVoice(cfg.Voice))
		}
		g, err := voice.NewGoogleClientFromEnv(log, gOpts...)
		if err != nil {
			log.Error("google speech: %v", err)
			return voice.NewMute(log), nil, nil
		}
		log.Info("TTS enabled (google, voice=%s)", g.Voice())
		synth = g
	default:
		log.Info("TTS disabled: set %s and %s (or the Google TTS vars) to enable",
			voice.EnvAzureSpeechKey, voice.EnvAzureSpeechRegion)
		return voice.NewMute(log), nil, nil
	}

	var out domain.AudioPlayer
	player, err := voice.NewPlayer(log)
	if err != nil {
		log.Error("audio player init failed, prompts will not be audible: %v", err)
		out = voice.NewSilent(log)
	} else {
		out = player
	}

	t := voice.NewThrottle(synth, out, log,
		voice.WithPolicy(cfg.Cooldowns),
		voice.WithAssetDir(cfg.AssetDir),
	)
	return t, t, player
}

// buildDispatcher wires every alert channel whose credentials are set.
// Returns nil when alerts are disabled.
func buildDispatcher(cfg *config.Config, log *logger.Logger) *alert.Dispatcher {
	if cfg.NoAlerts {
		log.Info("alerts disabled by flag")
		return nil
	}

	var alerters []domain.Alerter

	if smtpCfg, err := alert.SMTPConfigFromEnv(); err == nil {
		alerters = append(alerters, alert.NewSMTPMailer(smtpCfg, log))
	} else {
		log.Info("email alerts off: %v", err)
	}

	if twCfg, err := alert.TwilioConfigFromEnv(); err == nil {
		if sms, err := alert.NewTwilioSMS(twCfg, log); err == nil {
			alerters = append(alerters, sms)
		}
		if call, err := alert.NewTwilioCall(twCfg, log); err == nil {
			alerters = append(alerters, call)
		}
	} else {
		log.Info("sms/call alerts off: %v", err)
	}

	d := alert.NewDispatcher(alerters, log,
		alert.WithRepeatWindow(cfg.AlertWindow),
		alert.WithFrameDistance(cfg.FrameDistance),
	)
	if len(alerters) > 0 {
		log.Info("alerts enabled via %v (window=%s)", d.Channels(), cfg.AlertWindow)
	}
	return d
}

// buildEventLog opens the screening CSV log. Returns nil when the log is
// off or cannot be opened.
func buildEventLog(cfg *config.Config, log *logger.Logger) *storage.CSVLog {
	if cfg.EventLog == "" {
		log.Info("event log off")
		return nil
	}
	l, err := storage.NewCSVLog(cfg.EventLog, log)
	if err != nil {
		log.Error("event log disabled: %v", err)
		return nil
	}
	log.Info("recording screening events to %s", l.Path())
	return l
}

// consoleSpeaker echoes every prompt to the console along with whether
// the throttle took it.
type consoleSpeaker struct {
	next    domain.Speaker
	console *display.Console
	muted   bool
}

func (s *consoleSpeaker) SpeakEvent(ctx context.Context, c domain.Category, text string, blocking bool) bool {
	ok := s.next.SpeakEvent(ctx, c, text, blocking)
	if s.muted {
		s.console.Hint("♪ (muted) %s", text)
		return ok
	}
	s.console.Spoken(text, ok)
	return ok
}
