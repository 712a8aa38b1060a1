package display

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 7, 5, 9, 0, time.UTC) }

	c.Spoken("Face detected.", true)
	c.Spoken("Face detected.", false)
	c.Alert("threat: %s", "Unknown")
	c.Println("raw")

	out := buf.String()
	for _, want := range []string{"07:05:09", "♪ Face detected.", "(held back)", "threat: Unknown", "raw\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "\n"); n != 4 {
		t.Fatalf("expected 4 lines, got %d", n)
	}
}

func TestRenderBannerCentres(t *testing.T) {
	out := renderBanner(100)
	if !strings.Contains(out, "|___/") {
		t.Fatalf("banner art missing:\n%s", out)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	tag := lines[len(lines)-1]
	pad := (100 - len(Tagline)) / 2
	if !strings.HasPrefix(tag, strings.Repeat(" ", pad)+Tagline) {
		t.Fatalf("tagline not centred: %q", tag)
	}

	// Narrow terminals get no padding.
	narrow := strings.Split(renderBanner(10), "\n")
	if narrow[len(narrow)-2] != Tagline {
		t.Fatalf("expected unpadded tagline, got %q", narrow[len(narrow)-2])
	}
}
