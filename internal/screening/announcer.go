// Package screening turns outcomes of the camera/detector loop into
// spoken prompts and external alerts. The detector itself lives outside
// this module; it reports what it saw through the Announcer.
package screening

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/sentinel/internal/alert"
	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// UnknownSubject is the name the recognizer reports for unmatched faces.
const UnknownSubject = "Unknown"

// AlertSender is satisfied by *alert.Dispatcher.
type AlertSender interface {
	Dispatch(ctx context.Context, a domain.Alert) error
}

// Option configures the Announcer.
type Option func(*Announcer)

// WithAlerts enables external alerts for threat outcomes.
func WithAlerts(s AlertSender) Option {
	return func(a *Announcer) {
		a.alerts = s
	}
}

// WithEventLog records every outcome the announcer handles.
func WithEventLog(l domain.EventLog) Option {
	return func(a *Announcer) {
		a.events = l
	}
}

// WithRecognitionThreshold sets the starting recognition threshold.
// Values outside the allowed range are ignored.
func WithRecognitionThreshold(v float64) Option {
	return func(a *Announcer) {
		if domain.ValidateThreshold(v) == nil {
			a.threshold = v
		}
	}
}

// WithAlertTimeout bounds each background alert dispatch.
func WithAlertTimeout(d time.Duration) Option {
	return func(a *Announcer) {
		a.alertTimeout = d
	}
}

// Announcer maps screening outcomes to prompt categories. While paused
// it drops every outcome without speaking, alerting or logging it.
type Announcer struct {
	speaker      domain.Speaker
	alerts       AlertSender     // nil = no external alerts
	events       domain.EventLog // nil = no event log
	log          *logger.Logger
	alertTimeout time.Duration
	now          func() time.Time

	mu        sync.Mutex
	paused    bool
	threshold float64

	wg sync.WaitGroup
}

// NewAnnouncer creates an announcer that speaks through speaker.
func NewAnnouncer(speaker domain.Speaker, log *logger.Logger, opts ...Option) *Announcer {
	a := &Announcer{
		speaker:      speaker,
		log:          log,
		alertTimeout: 30 * time.Second,
		now:          time.Now,
		threshold:    domain.DefaultRecognitionThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CameraStarted greets the queue when the camera comes up.
func (a *Announcer) CameraStarted(ctx context.Context) bool {
	if a.dropped(domain.CategoryCameraStart) {
		return false
	}
	ok := a.speaker.SpeakEvent(ctx, domain.CategoryCameraStart, LineCameraStart(), false)
	a.record(domain.Event{Category: domain.CategoryCameraStart, Spoken: ok})
	return ok
}

// FaceDetected announces a face; name is the recognized subject or
// UnknownSubject.
func (a *Announcer) FaceDetected(ctx context.Context, name string) bool {
	if a.dropped(domain.CategoryFaceDetected) {
		return false
	}
	ok := a.speaker.SpeakEvent(ctx, domain.CategoryFaceDetected, LineFaceDetected(name), false)
	a.record(domain.Event{Category: domain.CategoryFaceDetected, Subject: name, Spoken: ok})
	return ok
}

// AccessoryFound asks the subject to remove the flagged items.
func (a *Announcer) AccessoryFound(ctx context.Context, items []domain.Accessory) bool {
	if a.dropped(domain.CategoryRemoveAccessory) {
		return false
	}
	items = dedupe(items)
	ok := a.speaker.SpeakEvent(ctx, domain.CategoryRemoveAccessory, LineRemoveAccessory(items), false)
	a.record(domain.Event{Category: domain.CategoryRemoveAccessory, Accessories: items, Spoken: ok})
	return ok
}

// ScanComplete reports the final outcome. Threats are spoken blocking so
// the denial is heard before the loop moves on, and an alert is sent in
// the background when alerts are enabled. A named subject whose match is
// weaker than the recognition threshold is reported as UnknownSubject.
// r.Accessories are the items still flagged when the scan ended; they go
// into the alert and the event log.
func (a *Announcer) ScanComplete(ctx context.Context, r domain.ScanResult) bool {
	category := domain.CategoryScanCompleteSafe
	if r.Threat {
		category = domain.CategoryScanCompleteThreat
	}
	if a.dropped(category) {
		return false
	}
	r.Subject = a.resolveSubject(r.Subject, r.Confidence)
	r.Accessories = dedupe(r.Accessories)

	var ok bool
	if r.Threat {
		a.sendAlert(r)
		ok = a.speaker.SpeakEvent(ctx, category, LineThreat(), true)
	} else {
		ok = a.speaker.SpeakEvent(ctx, category, LineSafe(r.Subject), false)
	}
	a.record(domain.Event{
		At:          r.At,
		Category:    category,
		Subject:     r.Subject,
		Confidence:  r.Confidence,
		Accessories: r.Accessories,
		Spoken:      ok,
	})
	return ok
}

// Pause stops the announcer from acting on outcomes. It returns false
// if it was already paused.
func (a *Announcer) Pause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.paused {
		return false
	}
	a.paused = true
	a.log.Info("screening paused")
	return true
}

// Resume undoes Pause. It returns false if the announcer was running.
func (a *Announcer) Resume() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.paused {
		return false
	}
	a.paused = false
	a.log.Info("screening resumed")
	return true
}

// Paused reports whether outcomes are being dropped.
func (a *Announcer) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// RecognitionThreshold returns the largest face distance accepted as a
// match.
func (a *Announcer) RecognitionThreshold() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.threshold
}

// SetRecognitionThreshold changes the threshold used by later scans.
func (a *Announcer) SetRecognitionThreshold(v float64) error {
	if err := domain.ValidateThreshold(v); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = v
	return nil
}

// resolveSubject treats 1-confidence as the face distance. A zero
// confidence means the recognizer gave no score and the name stands.
func (a *Announcer) resolveSubject(name string, confidence float64) string {
	if name == "" || strings.EqualFold(name, UnknownSubject) || confidence <= 0 {
		return name
	}
	threshold := a.RecognitionThreshold()
	if 1-confidence > threshold {
		a.log.Debug("match for %s too weak (distance %.2f > %.2f)", name, 1-confidence, threshold)
		return UnknownSubject
	}
	return name
}

func (a *Announcer) dropped(c domain.Category) bool {
	if !a.Paused() {
		return false
	}
	a.log.Debug("screening paused, dropping %s", c)
	return true
}

func (a *Announcer) record(e domain.Event) {
	if a.events == nil {
		return
	}
	if e.At.IsZero() {
		e.At = a.now()
	}
	if err := a.events.Record(e); err != nil {
		a.log.Error("event log: %v", err)
	}
}

// Wait blocks until background alert dispatches finish.
func (a *Announcer) Wait() { a.wg.Wait() }

// sendAlert dispatches on its own goroutine with a fresh timeout so a
// cancelled caller context doesn't drop the alert. Failures are logged.
func (a *Announcer) sendAlert(r domain.ScanResult) {
	if a.alerts == nil {
		return
	}
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	al := domain.Alert{
		Subject:     r.Subject,
		Confidence:  r.Confidence,
		Accessories: r.Accessories,
		Image:       r.Frame,
		ImageName:   "capture-" + at.Format("20060102-150405") + frameExt(r.Frame),
		At:          at,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.alertTimeout)
		defer cancel()

		err := a.alerts.Dispatch(ctx, al)
		switch {
		case err == nil:
		case errors.Is(err, alert.ErrSuppressed):
			a.log.Debug("alert for %s suppressed", al.Subject)
		default:
			a.log.Error("alert dispatch: %v", err)
		}
	}()
}

func frameExt(frame []byte) string {
	if bytes.HasPrefix(frame, []byte("\x89PNG")) {
		return ".png"
	}
	return ".jpg"
}

func dedupe(items []domain.Accessory) []domain.Accessory {
	seen := make(map[domain.Accessory]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
