package voice

import (
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Compile-time interface check.
var _ domain.AudioPlayer = (*Player)(nil)

// pollInterval is how often a blocking PlayFile checks for the end of
// playback.
const pollInterval = 10 * time.Millisecond

// Player streams WAV assets from disk to the default output device via
// oto. Only assets in the device's format are played; anything else is
// refused with a *FormatError.
type Player struct {
	ctx    *oto.Context
	format WAVFormat
	log    *logger.Logger

	mu      sync.Mutex
	current *oto.Player // nil when idle
}

// NewPlayer opens the output device in StationFormat. Returns an error
// if the audio device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   StationFormat.SampleRate,
		ChannelCount: StationFormat.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	log.Debug("audio output ready (%s)", StationFormat)
	return &Player{ctx: ctx, format: StationFormat, log: log}, nil
}

// PlayFile streams the asset at path. Blocks until playback finishes or
// Stop is called.
func (p *Player) PlayFile(path string) error {
	a, err := openAsset(path, p.format)
	if err != nil {
		return err
	}
	defer a.Close()

	return p.stream(a)
}

func (p *Player) stream(pcm io.Reader) error {
	op := p.ctx.NewPlayer(pcm)
	p.setCurrent(op)
	defer p.setCurrent(nil)

	op.Play()
	for op.IsPlaying() {
		time.Sleep(pollInterval)
	}
	if err := op.Err(); err != nil {
		op.Close()
		return err
	}
	return op.Close()
}

func (p *Player) setCurrent(op *oto.Player) {
	p.mu.Lock()
	p.current = op
	p.mu.Unlock()
}

// Stop cuts the current prompt short. Safe to call concurrently and
// when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	op := p.current
	p.mu.Unlock()
	if op == nil {
		return
	}
	op.Pause()
	p.log.Debug("playback interrupted")
}
