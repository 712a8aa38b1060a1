package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// recordingAlerter captures alerts for assertions.
type recordingAlerter struct {
	name string
	err  error

	mu   sync.Mutex
	sent []domain.Alert
}

func (r *recordingAlerter) Name() string { return r.name }

func (r *recordingAlerter) Send(_ context.Context, a domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, a)
	return r.err
}

func (r *recordingAlerter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatchFansOutToAllChannels(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	email := &recordingAlerter{name: "email"}
	sms := &recordingAlerter{name: "sms"}
	call := &recordingAlerter{name: "call"}
	d := NewDispatcher([]domain.Alerter{email, sms, call}, log)

	err := d.Dispatch(context.Background(), domain.Alert{Subject: "Unknown", Confidence: 0.91})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	for _, a := range []*recordingAlerter{email, sms, call} {
		if a.count() != 1 {
			t.Fatalf("%s got %d alerts, want 1", a.name, a.count())
		}
		if a.sent[0].At.IsZero() {
			t.Fatalf("%s got alert without timestamp", a.name)
		}
	}
	if got := d.Channels(); len(got) != 3 || got[1] != "sms" {
		t.Fatalf("unexpected channels %v", got)
	}
}

func TestDispatchJoinsChannelErrors(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	boom := errors.New("provider down")
	bad := &recordingAlerter{name: "sms", err: boom}
	good := &recordingAlerter{name: "email"}
	d := NewDispatcher([]domain.Alerter{bad, good}, log)

	err := d.Dispatch(context.Background(), domain.Alert{Subject: "Alex"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined provider error, got %v", err)
	}
	if good.count() != 1 {
		t.Fatal("failing channel must not stop the others")
	}
}

func TestDispatchSuppressesRepeats(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	sms := &recordingAlerter{name: "sms"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	d := NewDispatcher([]domain.Alerter{sms}, log, WithRepeatWindow(time.Minute), WithDispatchClock(clock))
	ctx := context.Background()

	if err := d.Dispatch(ctx, domain.Alert{Subject: "Unknown"}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := d.Dispatch(ctx, domain.Alert{Subject: " unknown "}); !errors.Is(err, ErrSuppressed) {
		t.Fatalf("expected ErrSuppressed, got %v", err)
	}
	if err := d.Dispatch(ctx, domain.Alert{Subject: "Jordan"}); err != nil {
		t.Fatalf("other subject should pass: %v", err)
	}

	now = now.Add(time.Minute)
	if err := d.Dispatch(ctx, domain.Alert{Subject: "Unknown"}); err != nil {
		t.Fatalf("after window: %v", err)
	}
	if sms.count() != 3 {
		t.Fatalf("expected 3 sends, got %d", sms.count())
	}
}

func TestDispatchWithoutChannels(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	d := NewDispatcher(nil, log)
	if err := d.Dispatch(context.Background(), domain.Alert{Subject: "x"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRenderers(t *testing.T) {
	a := domain.Alert{
		Subject:    "",
		Confidence: 0.987,
		At:         time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
	if got := RenderSMS(a); got != "SECURITY ALERT: Unknown person flagged at 2026-03-01 08:30:00 (confidence 98.7%)." {
		t.Fatalf("unexpected sms %q", got)
	}
	subject, body := RenderEmail(a)
	if subject != "Security alert: Unknown person" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if body == "" || RenderCall(a) == "" {
		t.Fatal("expected non-empty bodies")
	}
}

func TestDispatchAssignsID(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	email := &recordingAlerter{name: "email"}
	sms := &recordingAlerter{name: "sms"}
	d := NewDispatcher([]domain.Alerter{email, sms}, log)

	if err := d.Dispatch(context.Background(), domain.Alert{Subject: "Avery"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	id := email.sent[0].ID
	if len(id) != 36 {
		t.Fatalf("expected uuid, got %q", id)
	}
	if sms.sent[0].ID != id {
		t.Fatal("channels must share one alert ID")
	}

	if err := d.Dispatch(context.Background(), domain.Alert{ID: "fixed", Subject: "Blake"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if email.sent[1].ID != "fixed" {
		t.Fatalf("caller ID overwritten: %q", email.sent[1].ID)
	}
}

func TestRenderersIncludeReference(t *testing.T) {
	a := domain.Alert{
		ID:         "3f2c9a1e-0000-4000-8000-000000000000",
		Subject:    "Casey",
		Confidence: 0.5,
		At:         time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
	if got := RenderSMS(a); got != "SECURITY ALERT: Casey flagged at 2026-03-01 08:30:00 (confidence 50.0%). Ref 3f2c9a1e." {
		t.Fatalf("unexpected sms %q", got)
	}
	if _, body := RenderEmail(a); !strings.Contains(body, "Reference:  "+a.ID) {
		t.Fatalf("email body missing reference:\n%s", body)
	}
}

func TestRenderersListAccessories(t *testing.T) {
	a := domain.Alert{
		Subject:     "Unknown",
		Confidence:  0.9,
		Accessories: []domain.Accessory{domain.AccessoryMask, domain.AccessoryCap},
		At:          time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
	if got := RenderSMS(a); got != "SECURITY ALERT: Unknown flagged at 2026-03-01 08:30:00 (confidence 90.0%). Wearing mask, cap." {
		t.Fatalf("unexpected sms %q", got)
	}
	if _, body := RenderEmail(a); !strings.Contains(body, "Wearing:    mask, cap") {
		t.Fatalf("email body missing accessories:\n%s", body)
	}
}
