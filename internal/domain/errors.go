package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrUnknownCategory  = errors.New("unknown event category")
	ErrUnknownAccessory = errors.New("unknown accessory")
	ErrNotConfigured    = errors.New("not configured")
	ErrClosed           = errors.New("closed")
	ErrNotFound         = errors.New("not found")
	ErrThresholdRange   = errors.New("recognition threshold out of range")
)

// SynthesisError reports that the text-to-speech backend failed or could
// not be reached for Text.
type SynthesisError struct {
	Text string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesizing %q: %v", e.Text, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// PlaybackError reports that the audio output device failed while
// playing the asset rendered for Text.
type PlaybackError struct {
	Text  string
	Asset string
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playing %q (%s): %v", e.Text, e.Asset, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
