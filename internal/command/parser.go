// Package command parses console lines into screening commands. Each
// line stands in for one report from the camera/detector loop, or a
// station control action.
package command

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Kind classifies a console command.
type Kind int

const (
	KindUnknown Kind = iota
	KindCamera
	KindFace
	KindAccessory
	KindScan
	KindSay
	KindStatus
	KindLogLevel
	KindPause
	KindResume
	KindThreshold
	KindExport
	KindHelp
	KindQuit
)

// String returns a human-readable kind.
func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindFace:
		return "face"
	case KindAccessory:
		return "accessory"
	case KindScan:
		return "scan"
	case KindSay:
		return "say"
	case KindStatus:
		return "status"
	case KindLogLevel:
		return "log"
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	case KindThreshold:
		return "threshold"
	case KindExport:
		return "export"
	case KindHelp:
		return "help"
	case KindQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is a parsed console line.
type Command struct {
	Kind        Kind
	Subject     string             // face / scan
	Threat      bool               // scan
	Confidence  float64            // scan, 0..1
	Accessories []domain.Accessory // accessory
	FramePath   string             // scan, from an "@path" argument
	Value       float64            // threshold, when Text is set
	Text        string             // say, log level, threshold, export path, or the raw input for unknown
}

// DefaultExportPath is where "export" writes when no path is given.
const DefaultExportPath = "exported_log.csv"

type rule struct {
	regex *regexp.Regexp
	kind  Kind
}

// Parser matches console input to commands using keyword patterns.
type Parser struct {
	log   *logger.Logger
	rules []rule
}

// NewParser creates a keyword-based command parser.
func NewParser(log *logger.Logger) *Parser {
	return &Parser{
		log: log,
		rules: []rule{
			{regexp.MustCompile(`(?i)^(camera|cam|start camera)$`), KindCamera},
			{regexp.MustCompile(`(?i)^face\b`), KindFace},
			{regexp.MustCompile(`(?i)^(accessory|accessories|acc)\b`), KindAccessory},
			{regexp.MustCompile(`(?i)^(threat|safe)\b`), KindScan},
			{regexp.MustCompile(`(?i)^say\s+\S`), KindSay},
			{regexp.MustCompile(`(?i)^(status|stats|info)$`), KindStatus},
			{regexp.MustCompile(`(?i)^log(\s+\S+)?$`), KindLogLevel},
			{regexp.MustCompile(`(?i)^(pause|hold)$`), KindPause},
			{regexp.MustCompile(`(?i)^(resume|continue)$`), KindResume},
			{regexp.MustCompile(`(?i)^threshold(\s+\S+)?$`), KindThreshold},
			{regexp.MustCompile(`(?i)^export\b`), KindExport},
			{regexp.MustCompile(`(?i)^(help|h|\?)$`), KindHelp},
			{regexp.MustCompile(`(?i)^(quit|exit|q)$`), KindQuit},
		},
	}
}

// Parse converts one input line into a command. Malformed arguments
// (bad confidence, unknown accessory) return an error.
func (p *Parser) Parse(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Command{Kind: KindUnknown}, nil
	}

	for _, r := range p.rules {
		if !r.regex.MatchString(trimmed) {
			continue
		}
		p.log.Debug("matched command: %s", r.kind)
		fields := strings.Fields(trimmed)
		switch r.kind {
		case KindFace:
			return Command{Kind: KindFace, Subject: subject(fields[1:])}, nil
		case KindAccessory:
			return parseAccessory(fields[1:])
		case KindScan:
			return parseScan(fields)
		case KindSay:
			return Command{Kind: KindSay, Text: strings.TrimSpace(trimmed[len(fields[0]):])}, nil
		case KindLogLevel:
			cmd := Command{Kind: KindLogLevel}
			if len(fields) > 1 {
				cmd.Text = strings.ToLower(fields[1])
			}
			return cmd, nil
		case KindThreshold:
			return parseThreshold(fields[1:])
		case KindExport:
			path := strings.TrimSpace(trimmed[len(fields[0]):])
			if path == "" {
				path = DefaultExportPath
			}
			return Command{Kind: KindExport, Text: path}, nil
		default:
			return Command{Kind: r.kind}, nil
		}
	}

	p.log.Debug("no match for %q", trimmed)
	return Command{Kind: KindUnknown, Text: trimmed}, nil
}

func parseAccessory(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("accessory: name at least one of mask, sunglasses, cap, scarf")
	}
	cmd := Command{Kind: KindAccessory}
	for _, arg := range args {
		for _, label := range strings.Split(arg, ",") {
			if label == "" {
				continue
			}
			a, err := domain.ParseAccessory(label)
			if err != nil {
				return Command{}, fmt.Errorf("accessory %q: %w", label, err)
			}
			cmd.Accessories = append(cmd.Accessories, a)
		}
	}
	return cmd, nil
}

// parseScan handles "threat|safe [subject...] [confidence] [@frame]". A
// trailing number is the confidence: a fraction in 0..1, or a percentage
// when it ends in "%".
func parseScan(fields []string) (Command, error) {
	cmd := Command{Kind: KindScan, Threat: strings.EqualFold(fields[0], "threat"), Confidence: 1}
	var args []string
	for _, f := range fields[1:] {
		if path, ok := strings.CutPrefix(f, "@"); ok && path != "" {
			cmd.FramePath = path
			continue
		}
		args = append(args, f)
	}
	if n := len(args); n > 0 {
		last, percent := strings.CutSuffix(args[n-1], "%")
		if v, err := strconv.ParseFloat(last, 64); err == nil {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Command{}, fmt.Errorf("confidence %s is not a number", args[n-1])
			}
			if percent {
				v /= 100
			}
			if v < 0 || v > 1 {
				return Command{}, fmt.Errorf("confidence %s out of range", args[n-1])
			}
			cmd.Confidence = v
			args = args[:n-1]
		}
	}
	cmd.Subject = subject(args)
	return cmd, nil
}

// parseThreshold handles "threshold [value]". Range checks belong to
// the announcer; here the value only has to be a number.
func parseThreshold(args []string) (Command, error) {
	cmd := Command{Kind: KindThreshold}
	if len(args) == 0 {
		return cmd, nil
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Command{}, fmt.Errorf("threshold %q is not a number", args[0])
	}
	cmd.Text = args[0]
	cmd.Value = v
	return cmd, nil
}

func subject(args []string) string {
	if len(args) == 0 {
		return "Unknown"
	}
	return strings.Join(args, " ")
}
