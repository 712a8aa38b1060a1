// Package domain defines the core types and interfaces for the screening
// station. All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Category identifies the semantic reason for a spoken prompt.
type Category string

const (
	CategoryFaceDetected       Category = "face_detected"
	CategoryRemoveAccessory    Category = "remove_accessory"
	CategoryScanCompleteThreat Category = "scan_complete_threat"
	CategoryScanCompleteSafe   Category = "scan_complete_safe"
	CategoryCameraStart        Category = "camera_start"
)

// Categories lists the known event categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryFaceDetected,
		CategoryRemoveAccessory,
		CategoryScanCompleteThreat,
		CategoryScanCompleteSafe,
		CategoryCameraStart,
	}
}

// ParseCategory converts a category name such as "camera_start" into a
// known Category.
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range Categories() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// CooldownPolicy maps a category to the minimum time between two
// accepted prompts of that category. Treated as read-only once built.
type CooldownPolicy map[Category]time.Duration

// DefaultCooldownPolicy returns the station's stock cooldown windows.
func DefaultCooldownPolicy() CooldownPolicy {
	return CooldownPolicy{
		CategoryFaceDetected:       15 * time.Second,
		CategoryRemoveAccessory:    8 * time.Second,
		CategoryScanCompleteThreat: 5 * time.Second,
		CategoryScanCompleteSafe:   5 * time.Second,
		CategoryCameraStart:        60 * time.Second,
	}
}

// Window returns the cooldown for c. Unknown categories get zero.
func (p CooldownPolicy) Window(c Category) time.Duration {
	return p[c]
}

// Accessory is a prohibited item the detector can flag.
type Accessory string

const (
	AccessoryMask       Accessory = "mask"
	AccessorySunglasses Accessory = "sunglasses"
	AccessoryCap        Accessory = "cap"
	AccessoryScarf      Accessory = "scarf"
)

// accessoryLabels maps detector class labels to accessories.
var accessoryLabels = map[string]Accessory{
	"mask":           AccessoryMask,
	"face-mask":      AccessoryMask,
	"sunglasses":     AccessorySunglasses,
	"glasses":        AccessorySunglasses,
	"cap":            AccessoryCap,
	"hat":            AccessoryCap,
	"scarf":          AccessoryScarf,
	"scarf-kerchief": AccessoryScarf,
}

// ParseAccessory converts a detector label into an Accessory.
func ParseAccessory(label string) (Accessory, error) {
	if a, ok := accessoryLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return a, nil
	}
	return "", ErrUnknownAccessory
}

// ScanResult is the outcome of one screening pass.
type ScanResult struct {
	Subject     string      // recognized name, "Unknown" when unmatched
	Threat      bool        // true when the subject should be flagged
	Confidence  float64     // 0..1 detector/recognizer confidence
	Accessories []Accessory // items still flagged when the scan ended
	Frame       []byte      // optional JPEG or PNG of the captured frame
	At          time.Time
}

// Alert is what gets sent to external channels when a threat is found.
type Alert struct {
	ID          string // set by the dispatcher when empty
	Subject     string
	Confidence  float64
	Accessories []Accessory
	Image       []byte
	ImageName   string
	At          time.Time
}

// Event is one row of the screening log.
type Event struct {
	At          time.Time
	Category    Category
	Subject     string
	Confidence  float64 // zero when the event carries none
	Accessories []Accessory
	Spoken      bool // whether the prompt was accepted by the speaker
}

// Recognition threshold bounds. The threshold is the largest face
// distance still accepted as a match; lower is stricter.
const (
	MinRecognitionThreshold     = 0.1
	MaxRecognitionThreshold     = 0.4
	DefaultRecognitionThreshold = 0.4
)

// Settings are the operator-tunable values kept across restarts.
type Settings struct {
	RecognitionThreshold float64 `json:"recognition_threshold"`
	LastUpdated          string  `json:"last_updated,omitempty"`
}

// DefaultSettings returns the settings used when none were saved.
func DefaultSettings() Settings {
	return Settings{RecognitionThreshold: DefaultRecognitionThreshold}
}

// ValidateThreshold reports whether v is a usable recognition threshold.
func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || v < MinRecognitionThreshold || v > MaxRecognitionThreshold {
		return fmt.Errorf("%v not in [%v, %v]: %w", v, MinRecognitionThreshold, MaxRecognitionThreshold, ErrThresholdRange)
	}
	return nil
}
