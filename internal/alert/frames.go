package alert

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"sync"
	"time"

	"github.com/corona10/goimagehash"
)

// DefaultMaxFrameDistance is the largest pHash Hamming distance at which
// two captures count as the same scene.
const DefaultMaxFrameDistance = 10

// HashFrame decodes a JPEG or PNG capture and returns its perceptual hash.
func HashFrame(frame []byte) (*goimagehash.ImageHash, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return goimagehash.PerceptionHash(img)
}

type seenFrame struct {
	hash *goimagehash.ImageHash
	at   time.Time
}

// FrameMatcher remembers the captures that recently triggered an alert,
// so a recognizer flipping between names for the same person in front of
// the camera does not page everyone twice.
type FrameMatcher struct {
	mu          sync.Mutex
	maxDistance int
	now         func() time.Time
	recent      []seenFrame
}

// NewFrameMatcher creates a matcher. A nil clock means time.Now.
func NewFrameMatcher(maxDistance int, now func() time.Time) *FrameMatcher {
	if now == nil {
		now = time.Now
	}
	return &FrameMatcher{maxDistance: maxDistance, now: now}
}

// Seen reports whether h is within the distance threshold of a frame
// remembered less than window ago.
func (m *FrameMatcher) Seen(h *goimagehash.ImageHash, window time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(window)
	for _, f := range m.recent {
		d, err := f.hash.Distance(h)
		if err == nil && d <= m.maxDistance {
			return true
		}
	}
	return false
}

// Remember records h as alerted now.
func (m *FrameMatcher) Remember(h *goimagehash.ImageHash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = append(m.recent, seenFrame{hash: h, at: m.now()})
}

// Len returns how many frames are currently remembered.
func (m *FrameMatcher) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recent)
}

// prune drops frames older than window. Caller holds mu.
func (m *FrameMatcher) prune(window time.Duration) {
	now := m.now()
	kept := m.recent[:0]
	for _, f := range m.recent {
		if now.Sub(f.at) < window {
			kept = append(kept, f)
		}
	}
	m.recent = kept
}
