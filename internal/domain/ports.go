package domain

import "context"

// Synthesizer turns text into playable audio bytes (WAV). Implementations
// wrap a cloud or local text-to-speech engine.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioPlayer plays an audio asset stored at path. PlayFile blocks until
// playback finishes.
type AudioPlayer interface {
	PlayFile(path string) error
}

// Speaker is the rate-limited voice prompt surface used by the
// screening flow. It reports whether the prompt was accepted.
type Speaker interface {
	SpeakEvent(ctx context.Context, category Category, text string, blocking bool) bool
}

// Alerter delivers a threat alert over one external channel
// (email, SMS, voice call).
type Alerter interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// EventLog keeps a durable record of screening outcomes.
type EventLog interface {
	Record(e Event) error
}
