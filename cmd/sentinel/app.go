package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hammamikhairi/sentinel/internal/alert"
	"github.com/hammamikhairi/sentinel/internal/command"
	"github.com/hammamikhairi/sentinel/internal/display"
	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
	"github.com/hammamikhairi/sentinel/internal/screening"
	"github.com/hammamikhairi/sentinel/internal/storage"
	"github.com/hammamikhairi/sentinel/internal/voice"
)

type cliApp struct {
	console    *display.Console
	parser     *command.Parser
	announcer  *screening.Announcer
	throttle   *voice.Throttle   // nil when speech is disabled
	dispatcher *alert.Dispatcher // nil when alerts are disabled
	events     *storage.CSVLog   // nil when the event log is off
	settings   *storage.SettingsStore
	log        *logger.Logger

	// flagged holds the accessories reported since the last face or
	// scan; the next scan carries them.
	flagged []domain.Accessory
}

// run reads commands from in until quit, EOF or ctx is cancelled.
func (a *cliApp) run(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			a.log.Error("reading input: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !a.handle(ctx, line) {
				return
			}
		}
	}
}

// handle executes one line. Returns false on quit.
func (a *cliApp) handle(ctx context.Context, line string) bool {
	cmd, err := a.parser.Parse(line)
	if err != nil {
		a.console.Alert("%v", err)
		return true
	}
	a.log.Debug("command: %s", cmd.Kind)

	switch cmd.Kind {
	case command.KindCamera, command.KindFace, command.KindAccessory, command.KindScan:
		if a.announcer.Paused() {
			a.console.Hint("Screening paused, %s ignored. Type 'resume' to continue.", cmd.Kind)
			return true
		}
	}

	switch cmd.Kind {
	case command.KindCamera:
		a.announcer.CameraStarted(ctx)
	case command.KindFace:
		a.flagged = nil
		a.announcer.FaceDetected(ctx, cmd.Subject)
	case command.KindAccessory:
		a.flagged = append(a.flagged, cmd.Accessories...)
		a.announcer.AccessoryFound(ctx, cmd.Accessories)
	case command.KindScan:
		a.scan(ctx, cmd)
	case command.KindPause:
		if a.announcer.Pause() {
			a.console.Info("Screening paused. Outcomes are ignored until 'resume'.")
		} else {
			a.console.Hint("Screening is already paused.")
		}
	case command.KindResume:
		if a.announcer.Resume() {
			a.console.Info("Screening resumed.")
		} else {
			a.console.Hint("Screening is not paused.")
		}
	case command.KindThreshold:
		a.threshold(cmd)
	case command.KindExport:
		a.export(cmd.Text)
	case command.KindSay:
		a.say(ctx, cmd.Text)
	case command.KindStatus:
		a.status()
	case command.KindLogLevel:
		a.setLogLevel(cmd.Text)
	case command.KindHelp:
		a.showHelp()
	case command.KindQuit:
		a.console.Info("Shutting down.")
		return false
	case command.KindUnknown:
		if cmd.Text != "" {
			a.console.Hint("Unknown command %q. Type 'help' for commands.", cmd.Text)
		}
	}
	return true
}

func (a *cliApp) scan(ctx context.Context, cmd command.Command) {
	result := domain.ScanResult{
		Subject:     cmd.Subject,
		Threat:      cmd.Threat,
		Confidence:  cmd.Confidence,
		Accessories: a.flagged,
		At:          time.Now(),
	}
	if cmd.FramePath != "" {
		frame, err := os.ReadFile(cmd.FramePath)
		if err != nil {
			a.console.Alert("reading frame: %v", err)
			return
		}
		result.Frame = frame
	}
	a.flagged = nil
	if result.Threat {
		a.console.Alert("THREAT: %s (%.1f%%)", result.Subject, result.Confidence*100)
	} else {
		a.console.Safe("Cleared: %s (%.1f%%)", result.Subject, result.Confidence*100)
	}
	a.announcer.ScanComplete(ctx, result)
}

// threshold shows the recognition threshold, or sets and saves it.
func (a *cliApp) threshold(cmd command.Command) {
	if cmd.Text == "" {
		a.console.Info("Recognition threshold: %.2f (allowed %.2f to %.2f, lower is stricter)",
			a.announcer.RecognitionThreshold(), domain.MinRecognitionThreshold, domain.MaxRecognitionThreshold)
		return
	}
	if err := a.announcer.SetRecognitionThreshold(cmd.Value); err != nil {
		a.console.Alert("threshold: %v", err)
		return
	}
	if a.settings == nil {
		a.console.Info("Recognition threshold: %.2f", cmd.Value)
		return
	}
	if _, err := a.settings.Save(domain.Settings{RecognitionThreshold: cmd.Value}); err != nil {
		a.console.Alert("threshold set but not saved: %v", err)
		return
	}
	a.console.Info("Recognition threshold: %.2f (saved to %s)", cmd.Value, a.settings.Path())
}

func (a *cliApp) export(path string) {
	if a.events == nil {
		a.console.Hint("Event log is off.")
		return
	}
	n, err := a.events.Export(path)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.console.Alert("No event log found at %s.", a.events.Path())
	case err != nil:
		a.console.Alert("export failed: %v", err)
	default:
		a.console.Info("Event log exported to %s (%d bytes).", path, n)
	}
}

// say speaks free text outside the category cooldowns.
func (a *cliApp) say(ctx context.Context, text string) {
	if a.throttle == nil {
		a.console.Hint("♪ (muted) %s", text)
		return
	}
	if a.throttle.IsSpeaking() {
		a.console.Spoken(text, false)
		return
	}
	a.console.Spoken(text, true)
	a.throttle.SpeakNonBlocking(ctx, text)
}

func (a *cliApp) status() {
	state := "running"
	if a.announcer.Paused() {
		state = "paused"
	}
	a.console.Info("Screening: %s, recognition threshold %.2f", state, a.announcer.RecognitionThreshold())
	if a.events == nil {
		a.console.Info("Event log: off")
	} else {
		a.console.Info("Event log: %s", a.events.Path())
	}

	if a.throttle == nil {
		a.console.Info("Speech:   disabled")
	} else {
		hits, misses := a.throttle.Cache().Stats()
		a.console.Info("Speech:   speaking=%v, cached=%d (hits=%d, misses=%d)",
			a.throttle.IsSpeaking(), a.throttle.Cache().Len(), hits, misses)
		for _, c := range domain.Categories() {
			last, ok := a.throttle.LastSpoken(c)
			if !ok {
				a.console.Hint("  %-22s never", c)
				continue
			}
			a.console.Hint("  %-22s %s ago", c, formatDuration(time.Since(last)))
		}
	}

	if a.dispatcher == nil {
		a.console.Info("Alerts:   disabled")
	} else if ch := a.dispatcher.Channels(); len(ch) == 0 {
		a.console.Info("Alerts:   no channels configured")
	} else {
		a.console.Info("Alerts:   %s", strings.Join(ch, ", "))
	}
}

// setLogLevel changes the level of every component logger; with no
// name it prints the current level.
func (a *cliApp) setLogLevel(name string) {
	if name == "" {
		a.console.Info("Log level: %s", a.log.GetLevel())
		return
	}
	level, ok := logger.ParseLevel(name)
	if !ok {
		a.console.Alert("unknown log level %q (off, normal, verbose)", name)
		return
	}
	a.log.SetLevel(level)
	a.console.Info("Log level: %s", level)
}

func (a *cliApp) showHelp() {
	a.console.Println("Commands:")
	a.console.Println("  camera                      Camera came up")
	a.console.Println("  face [name]                 Face detected (default Unknown)")
	a.console.Println("  accessory <kind>...         Flag mask, sunglasses, cap or scarf")
	a.console.Println("  threat [subject] [conf]     Scan flagged a threat (conf 0..1 or %)")
	a.console.Println("  safe [subject] [conf]       Scan cleared the subject")
	a.console.Println("                              Either takes @path to attach a captured frame")
	a.console.Println("  say <text>                  Speak free text (no cooldown)")
	a.console.Println("  status                      Show cache, cooldowns and alert channels")
	a.console.Println("  pause / resume              Ignore outcomes until resumed")
	a.console.Println("  threshold [0.10-0.40]       Show or set the recognition threshold")
	a.console.Println("  export [path]               Copy the event log (default exported_log.csv)")
	a.console.Println("  log [off|normal|verbose]    Show or change the log level")
	a.console.Println("  help                        Show this message")
	a.console.Println("  quit / exit                 Exit")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
