package alert

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// blockFrame renders a 64x64 PNG of random 8x8 grey blocks. Different
// seeds give unrelated scenes; the same seed gives the same scene.
func blockFrame(t *testing.T, seed int64, tweak bool) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for by := 0; by < 8; by++ {
		for bx := 0; bx < 8; bx++ {
			g := color.Gray{Y: uint8(rng.Intn(256))}
			for y := by * 8; y < by*8+8; y++ {
				for x := bx * 8; x < bx*8+8; x++ {
					img.SetGray(x, y, g)
				}
			}
		}
	}
	if tweak {
		img.SetGray(0, 0, color.Gray{Y: img.GrayAt(0, 0).Y ^ 0x01})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestFrameMatcher(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewFrameMatcher(DefaultMaxFrameDistance, func() time.Time { return now })

	first, err := HashFrame(blockFrame(t, 1, false))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	near, _ := HashFrame(blockFrame(t, 1, true))
	other, _ := HashFrame(blockFrame(t, 2, false))

	if m.Seen(first, time.Minute) {
		t.Fatal("empty matcher reported a match")
	}
	m.Remember(first)

	if !m.Seen(near, time.Minute) {
		t.Fatal("near-identical frame should match")
	}
	if m.Seen(other, time.Minute) {
		t.Fatal("unrelated frame should not match")
	}

	now = now.Add(time.Minute)
	if m.Seen(near, time.Minute) {
		t.Fatal("frame should be forgotten after the window")
	}
	if m.Len() != 0 {
		t.Fatalf("expected pruned matcher, got %d frames", m.Len())
	}
}

func TestHashFrameRejectsGarbage(t *testing.T) {
	if _, err := HashFrame([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDispatchSuppressesSameFrameUnderOtherName(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	sms := &recordingAlerter{name: "sms"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDispatcher([]domain.Alerter{sms}, log, WithDispatchClock(func() time.Time { return now }))
	ctx := context.Background()

	frame := blockFrame(t, 7, false)
	if err := d.Dispatch(ctx, domain.Alert{Subject: "Unknown", Image: frame}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	err := d.Dispatch(ctx, domain.Alert{Subject: "Morgan", Image: blockFrame(t, 7, true)})
	if !errors.Is(err, ErrSuppressed) {
		t.Fatalf("expected same-frame suppression, got %v", err)
	}
	if err := d.Dispatch(ctx, domain.Alert{Subject: "Morgan", Image: blockFrame(t, 8, false)}); err != nil {
		t.Fatalf("different frame should pass: %v", err)
	}
	// Undecodable frames fall back to the subject check alone.
	if err := d.Dispatch(ctx, domain.Alert{Subject: "Riley", Image: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("garbage frame should pass: %v", err)
	}
	if sms.count() != 3 {
		t.Fatalf("expected 3 sends, got %d", sms.count())
	}
}

func TestDispatchFrameMatchingDisabled(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	sms := &recordingAlerter{name: "sms"}
	d := NewDispatcher([]domain.Alerter{sms}, log, WithFrameDistance(-1))
	ctx := context.Background()

	frame := blockFrame(t, 7, false)
	for _, who := range []string{"Unknown", "Morgan"} {
		if err := d.Dispatch(ctx, domain.Alert{Subject: who, Image: frame}); err != nil {
			t.Fatalf("dispatch %s: %v", who, err)
		}
	}
	if sms.count() != 2 {
		t.Fatalf("expected 2 sends, got %d", sms.count())
	}
}

func TestDispatchSameFrameConcurrently(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	sms := &recordingAlerter{name: "sms"}
	d := NewDispatcher([]domain.Alerter{sms}, log)
	frame := blockFrame(t, 11, false)

	names := []string{"Unknown", "Morgan", "Riley", "Sam", "Alex", "Jordan", "Casey", "Quinn"}
	var wg sync.WaitGroup
	for _, who := range names {
		wg.Add(1)
		go func(who string) {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), domain.Alert{Subject: who, Image: frame})
		}(who)
	}
	wg.Wait()

	if sms.count() != 1 {
		t.Fatalf("expected one alert for one frame, got %d", sms.count())
	}
}
