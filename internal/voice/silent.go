package voice

import (
	"context"
	"io"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.AudioPlayer = (*Silent)(nil)
	_ domain.Speaker     = (*Mute)(nil)
)

// Silent is a player that only logs. Used when a TTS backend is
// configured but no audio device could be opened.
type Silent struct {
	log *logger.Logger
}

// NewSilent creates a logging-only player.
func NewSilent(log *logger.Logger) *Silent {
	return &Silent{log: log}
}

// PlayFile checks the asset the way Player would and logs it instead
// of playing it.
func (s *Silent) PlayFile(path string) error {
	a, err := openAsset(path, StationFormat)
	if err != nil {
		return err
	}
	defer a.Close()
	n, err := io.Copy(io.Discard, a)
	if err != nil {
		return err
	}
	s.log.Debug("silent player: would play %s (%d bytes of PCM)", path, n)
	return nil
}

// Mute is a Speaker that accepts nothing. Used when no TTS backend is
// configured at all.
type Mute struct {
	log *logger.Logger
}

// NewMute creates a speaker that drops every prompt.
func NewMute(log *logger.Logger) *Mute {
	return &Mute{log: log}
}

// SpeakEvent logs the prompt and reports it as not accepted.
func (m *Mute) SpeakEvent(_ context.Context, category domain.Category, text string, _ bool) bool {
	m.log.Debug("mute: would say [%s] %q", category, text)
	return false
}
