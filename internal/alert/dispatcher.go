// Package alert delivers threat alerts from the screening station to
// people who are not standing next to it: email with the captured frame,
// SMS, and a voice call. The Dispatcher fans one alert out to every
// configured channel and holds back repeats for the same subject.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/google/uuid"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// ErrSuppressed is returned by Dispatch when the same subject was
// alerted within the repeat window.
var ErrSuppressed = errors.New("alert suppressed by cooldown")

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRepeatWindow sets how long repeats for one subject are held back.
func WithRepeatWindow(window time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.window = window
	}
}

// WithDispatchClock sets the time source for the repeat window.
func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithFrameDistance sets the pHash distance under which two captured
// frames count as the same person. A negative value turns frame matching
// off so only the subject name is compared.
func WithFrameDistance(maxDistance int) DispatcherOption {
	return func(d *Dispatcher) {
		d.frameDistance = maxDistance
	}
}

// Dispatcher sends alerts to every configured channel concurrently.
type Dispatcher struct {
	alerters []domain.Alerter
	log      *logger.Logger
	window   time.Duration
	now      func() time.Time
	cooldown *CooldownTracker

	frameDistance int
	frames        *FrameMatcher // nil when frame matching is off

	// gate makes the frame check, the subject check and the frame record
	// one step for concurrent dispatches.
	gate sync.Mutex
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(alerters []domain.Alerter, log *logger.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		alerters: alerters,
		log:      log,
		window:   60 * time.Second,
		now:      time.Now,

		frameDistance: DefaultMaxFrameDistance,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cooldown = NewCooldownTracker(d.now)
	if d.frameDistance >= 0 {
		d.frames = NewFrameMatcher(d.frameDistance, d.now)
	}
	return d
}

// Channels returns the names of the configured channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.alerters))
	for i, a := range d.alerters {
		names[i] = a.Name()
	}
	return names
}

// Dispatch sends a to all channels and waits for them. Per-channel
// failures are joined into the returned error; a failing channel does
// not stop the others.
//
// Repeats are suppressed when the same subject, or a frame that looks
// like one already alerted on, was dispatched within the repeat window.
func (d *Dispatcher) Dispatch(ctx context.Context, a domain.Alert) error {
	if len(d.alerters) == 0 {
		d.log.Debug("no alert channels configured, dropping alert for %s", a.Subject)
		return nil
	}

	if !d.admit(a) {
		return ErrSuppressed
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.At.IsZero() {
		a.At = d.now()
	}

	errs := make([]error, len(d.alerters))
	var wg sync.WaitGroup
	for i, al := range d.alerters {
		wg.Add(1)
		go func(i int, al domain.Alerter) {
			defer wg.Done()
			if err := al.Send(ctx, a); err != nil {
				errs[i] = fmt.Errorf("%s: %w", al.Name(), err)
				return
			}
			d.log.Info("alert %s sent via %s for %s", a.ID, al.Name(), a.Subject)
		}(i, al)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// admit decides whether a is new enough to send and records it if so.
func (d *Dispatcher) admit(a domain.Alert) bool {
	var hash *goimagehash.ImageHash
	if d.frames != nil && len(a.Image) > 0 {
		h, err := HashFrame(a.Image)
		if err != nil {
			d.log.Debug("frame not comparable: %v", err)
		} else {
			hash = h
		}
	}

	d.gate.Lock()
	defer d.gate.Unlock()

	if hash != nil && d.frames.Seen(hash, d.window) {
		d.log.Debug("alert for %s suppressed, frame matches a recent alert", a.Subject)
		return false
	}
	key := strings.ToLower(strings.TrimSpace(a.Subject))
	if !d.cooldown.Allow(key, d.window) {
		d.log.Debug("alert for %s suppressed (window=%s)", a.Subject, d.window)
		return false
	}
	if hash != nil {
		d.frames.Remember(hash)
	}
	return true
}
