package command

import (
	"reflect"
	"testing"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

func TestParser(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewParser(log)

	tests := []struct {
		input string
		want  Command
	}{
		{"camera", Command{Kind: KindCamera}},
		{"  CAM ", Command{Kind: KindCamera}},
		{"face", Command{Kind: KindFace, Subject: "Unknown"}},
		{"face Dana Scully", Command{Kind: KindFace, Subject: "Dana Scully"}},
		{"acc mask,sunglasses cap", Command{Kind: KindAccessory, Accessories: []domain.Accessory{
			domain.AccessoryMask, domain.AccessorySunglasses, domain.AccessoryCap,
		}}},
		{"accessory scarf-kerchief", Command{Kind: KindAccessory, Accessories: []domain.Accessory{domain.AccessoryScarf}}},
		{"threat", Command{Kind: KindScan, Threat: true, Subject: "Unknown", Confidence: 1}},
		{"threat Unknown 0.93", Command{Kind: KindScan, Threat: true, Subject: "Unknown", Confidence: 0.93}},
		{"safe Dana 87%", Command{Kind: KindScan, Subject: "Dana", Confidence: 0.87}},
		{"threat Bob 1%", Command{Kind: KindScan, Threat: true, Subject: "Bob", Confidence: 0.01}},
		{"threat Bob 0.5%", Command{Kind: KindScan, Threat: true, Subject: "Bob", Confidence: 0.005}},
		{"threat Bob 1", Command{Kind: KindScan, Threat: true, Subject: "Bob", Confidence: 1}},
		{"threat Unknown 0.8 @frames/cap.jpg", Command{Kind: KindScan, Threat: true, Subject: "Unknown", Confidence: 0.8, FramePath: "frames/cap.jpg"}},
		{"say Please wait here.", Command{Kind: KindSay, Text: "Please wait here."}},
		{"status", Command{Kind: KindStatus}},
		{"log", Command{Kind: KindLogLevel}},
		{"log Verbose", Command{Kind: KindLogLevel, Text: "verbose"}},
		{"pause", Command{Kind: KindPause}},
		{"Resume", Command{Kind: KindResume}},
		{"threshold", Command{Kind: KindThreshold}},
		{"threshold 0.25", Command{Kind: KindThreshold, Text: "0.25", Value: 0.25}},
		{"export", Command{Kind: KindExport, Text: DefaultExportPath}},
		{"export logs/march.csv", Command{Kind: KindExport, Text: "logs/march.csv"}},
		{"?", Command{Kind: KindHelp}},
		{"q", Command{Kind: KindQuit}},
		{"", Command{Kind: KindUnknown}},
		{"dance", Command{Kind: KindUnknown, Text: "dance"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parser.Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewParser(log)

	for _, input := range []string{"acc", "acc umbrella", "threat Bob 250", "safe Dana 87", "threat Bob 120%", "threat Bob NaN", "threat Bob -Inf%", "threshold strict", "threshold NaN"} {
		if _, err := parser.Parse(input); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}
