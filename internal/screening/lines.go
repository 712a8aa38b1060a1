// lines.go centralises every spoken prompt. Keep lines short; the TTS
// engine handles inflection.
package screening

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/sentinel/internal/domain"
)

func LineCameraStart() string {
	return "Security screening started. Please step in front of the camera."
}

func LineFaceDetected(name string) string {
	if name == "" || strings.EqualFold(name, UnknownSubject) {
		return "Face detected. Please hold still."
	}
	return fmt.Sprintf("Welcome, %s. Please hold still.", name)
}

// LineRemoveAccessory asks the subject to take off the flagged items,
// e.g. "Please remove your mask and sunglasses."
func LineRemoveAccessory(items []domain.Accessory) string {
	if len(items) == 0 {
		return "Please remove any face coverings."
	}
	names := make([]string, len(items))
	for i, a := range items {
		names[i] = string(a)
	}
	return fmt.Sprintf("Please remove your %s.", joinAnd(names))
}

func LineThreat() string {
	return "Alert. Access denied. Security has been notified."
}

func LineSafe(name string) string {
	if name == "" || strings.EqualFold(name, UnknownSubject) {
		return "Scan complete. You may proceed."
	}
	return fmt.Sprintf("Scan complete. You may proceed, %s.", name)
}

// StockLines returns prompts that don't depend on who is scanned, for
// prefetching at startup.
func StockLines() []string {
	return []string{
		LineCameraStart(),
		LineFaceDetected(""),
		LineThreat(),
		LineSafe(""),
		LineRemoveAccessory(nil),
	}
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
