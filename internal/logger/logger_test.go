package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsFilterOutput(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{"off", LevelOff, false, false},
		{"normal", LevelNormal, false, true},
		{"verbose", LevelVerbose, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, &buf)
			log.Debug("debug line")
			log.Info("info line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Fatalf("debug visible = %v, want %v (output %q)", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Fatalf("info visible = %v, want %v (output %q)", got, tt.wantInfo, out)
			}
		})
	}
}

func TestNamedSharesLevelAndPrefixes(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelNormal, &buf)
	child := root.Named("voice").Named("cache")

	child.Warn("disk full")
	if !strings.Contains(buf.String(), "[WRN] ") || !strings.Contains(buf.String(), "voice/cache: disk full") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	root.SetLevel(LevelOff)
	child.Error("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output after SetLevel(off), got %q", buf.String())
	}
	if child.GetLevel() != LevelOff {
		t.Fatalf("child level = %s, want off", child.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   Level
		wantOK bool
	}{
		{"off", LevelOff, true},
		{"VERBOSE", LevelVerbose, true},
		{"", LevelNormal, true},
		{"loud", LevelNormal, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
