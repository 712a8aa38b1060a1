// Package voice renders spoken prompts for the screening station. The
// Throttle owns the single audio channel: it deduplicates synthesis
// through a PhraseCache, never lets two renders overlap, and rate-limits
// prompt categories with per-category cooldown windows.
package voice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Compile-time interface check.
var _ domain.Speaker = (*Throttle)(nil)

// ThrottleOption configures the Throttle.
type ThrottleOption func(*Throttle)

// WithPolicy replaces the default cooldown policy.
func WithPolicy(p domain.CooldownPolicy) ThrottleOption {
	return func(t *Throttle) {
		t.policy = p
	}
}

// WithClock sets the time source used for cooldown checks.
func WithClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		t.now = now
	}
}

// WithAssetDir sets the directory the temp asset directory is created in.
// Empty means the system temp dir.
func WithAssetDir(dir string) ThrottleOption {
	return func(t *Throttle) {
		t.assetDir = dir
	}
}

// WithAssetExt sets the file extension of synthesized assets.
func WithAssetExt(ext string) ThrottleOption {
	return func(t *Throttle) {
		t.assetExt = ext
	}
}

// Throttle decides, per requested phrase, whether to render it now and
// renders it without overlapping any other in-flight speech.
//
// Lock discipline: mu guards only the speaking flag and is never held
// across synthesis or playback. cooldownMu guards lastSpoken and may take
// mu (via IsSpeaking) while held, never the other way around.
type Throttle struct {
	synth  domain.Synthesizer
	player domain.AudioPlayer
	log    *logger.Logger
	cache  *PhraseCache
	policy domain.CooldownPolicy
	now    func() time.Time

	assetDir string
	assetExt string

	mu       sync.Mutex
	speaking bool

	cooldownMu sync.Mutex
	lastSpoken map[domain.Category]time.Time // only categories that have spoken

	// accepted runs after SpeakEvent admits a prompt and before it is
	// dispatched. Tests use it to race the render for the channel.
	accepted func()

	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewThrottle creates a throttle around the given synthesizer and player.
func NewThrottle(synth domain.Synthesizer, player domain.AudioPlayer, log *logger.Logger, opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		synth:    synth,
		player:   player,
		log:      log,
		policy:   domain.DefaultCooldownPolicy(),
		now:      time.Now,
		assetExt: DefaultAssetExt,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.lastSpoken = make(map[domain.Category]time.Time, len(t.policy))
	t.cache = NewPhraseCache(t.assetDir, t.assetExt, log)
	return t
}

// Synthesize returns the asset path for text, synthesizing it only if
// this throttle has not rendered the same text before. Failures are
// returned as *domain.SynthesisError and are not cached. After Close
// the error wraps domain.ErrClosed.
func (t *Throttle) Synthesize(ctx context.Context, text string) (string, error) {
	if t.closed.Load() {
		return "", &domain.SynthesisError{Text: text, Err: domain.ErrClosed}
	}
	if path, ok := t.cache.Get(text); ok {
		return path, nil
	}

	audio, err := t.synth.Synthesize(ctx, text)
	if err != nil {
		return "", &domain.SynthesisError{Text: text, Err: err}
	}

	path, err := t.cache.Put(text, audio)
	if err != nil {
		return "", &domain.SynthesisError{Text: text, Err: err}
	}
	return path, nil
}

// SpeakBlocking renders text and returns once playback finished. If
// another render holds the channel it returns immediately without
// speaking. Errors are logged, never returned.
func (t *Throttle) SpeakBlocking(ctx context.Context, text string) {
	if !t.acquire() {
		t.log.Info("skipping, already speaking: %s", truncate(text, 60))
		return
	}
	defer t.release()

	if err := t.render(ctx, text); err != nil {
		t.log.Error("%v", err)
	}
}

// SpeakNonBlocking runs SpeakBlocking on its own goroutine and returns
// immediately. The caller observes neither success nor failure.
func (t *Throttle) SpeakNonBlocking(ctx context.Context, text string) {
	if t.closed.Load() {
		t.log.Warn("dropping %q: throttle closed", truncate(text, 60))
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.SpeakBlocking(ctx, text)
	}()
}

// SpeakEvent is the rate-limited entry point. The prompt is rejected
// when the category spoke within its cooldown window or when the channel
// is busy; otherwise it is dispatched and the category's timestamp is
// set to the dispatch time. Categories absent from the policy are never
// throttled by cooldown. Reports whether the prompt was dispatched.
//
// The busy check here and the render's own acquire are separate critical
// sections: an accepted prompt can still lose the channel to a concurrent
// render, in which case it is skipped but its cooldown stays consumed.
func (t *Throttle) SpeakEvent(ctx context.Context, category domain.Category, text string, blocking bool) bool {
	now := t.now()

	_, known := t.policy[category]

	t.cooldownMu.Lock()
	last, spoken := t.lastSpoken[category]
	if known && spoken && now.Sub(last) <= t.policy.Window(category) {
		t.cooldownMu.Unlock()
		t.log.Debug("cooldown: %s spoke %s ago", category, now.Sub(last).Round(time.Millisecond))
		return false
	}
	if t.IsSpeaking() {
		t.cooldownMu.Unlock()
		t.log.Info("skipping event %s, already speaking: %s", category, truncate(text, 60))
		return false
	}
	if known {
		t.lastSpoken[category] = now
	}
	t.cooldownMu.Unlock()

	if t.accepted != nil {
		t.accepted()
	}
	if blocking {
		t.SpeakBlocking(ctx, text)
	} else {
		t.SpeakNonBlocking(ctx, text)
	}
	return true
}

// Prefetch synthesizes texts in the background so later prompts start
// instantly. Already cached texts are skipped.
func (t *Throttle) Prefetch(ctx context.Context, texts ...string) {
	for _, text := range texts {
		if text == "" || t.cache.Has(text) || t.closed.Load() {
			continue
		}
		t.wg.Add(1)
		go func(s string) {
			defer t.wg.Done()
			if _, err := t.Synthesize(ctx, s); err != nil {
				t.log.Error("prefetch: %v", err)
			}
		}(text)
	}
}

// IsSpeaking reports whether a render currently holds the channel.
func (t *Throttle) IsSpeaking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speaking
}

// LastSpoken returns when category was last accepted and whether it
// ever was.
func (t *Throttle) LastSpoken(category domain.Category) (time.Time, bool) {
	t.cooldownMu.Lock()
	defer t.cooldownMu.Unlock()
	last, ok := t.lastSpoken[category]
	return last, ok
}

// Cache returns the phrase cache. Useful for stats.
func (t *Throttle) Cache() *PhraseCache { return t.cache }

// Wait blocks until all background renders and prefetches have finished.
func (t *Throttle) Wait() { t.wg.Wait() }

// Close stops accepting background work, waits for in-flight renders and
// removes the synthesized assets from disk.
func (t *Throttle) Close() error {
	t.closed.Store(true)
	t.wg.Wait()
	return t.cache.Close()
}

// acquire test-and-sets the speaking flag.
func (t *Throttle) acquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.speaking {
		return false
	}
	t.speaking = true
	return true
}

func (t *Throttle) release() {
	t.mu.Lock()
	t.speaking = false
	t.mu.Unlock()
}

// render synthesizes (or reuses) the asset for text and plays it. A
// panicking backend is reported as an error like any other failure.
func (t *Throttle) render(ctx context.Context, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render %q panicked: %v", truncate(text, 60), r)
		}
	}()

	path, err := t.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	t.log.Debug("speaking: %s", truncate(text, 60))
	if err := t.player.PlayFile(path); err != nil {
		return &domain.PlaybackError{Text: text, Asset: path, Err: err}
	}
	return nil
}
