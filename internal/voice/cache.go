package voice

import (
	"fmt"
	"os"
	"sync"

	"github.com/hammamikhairi/sentinel/internal/logger"
)

// PhraseCache maps prompt text to the path of its synthesized audio
// asset. Assets live in a private temp directory created on the first
// store. Entries are never evicted; Close removes the whole directory.
type PhraseCache struct {
	mu      sync.RWMutex
	entries map[string]string // text -> asset path
	log     *logger.Logger
	parent  string // where the temp dir is created ("" = os.TempDir())
	ext     string
	dir     string // created lazily
	hits    int64
	misses  int64
}

// NewPhraseCache creates an empty cache. parent is the directory the
// private asset directory is created under; ext is the asset extension.
func NewPhraseCache(parent, ext string, log *logger.Logger) *PhraseCache {
	if ext == "" {
		ext = DefaultAssetExt
	}
	return &PhraseCache{
		entries: make(map[string]string),
		log:     log,
		parent:  parent,
		ext:     ext,
	}
}

// Get returns the asset path for text and true, or "" and false.
func (c *PhraseCache) Get(text string) (string, bool) {
	c.mu.Lock()
	path, ok := c.entries[text]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if ok {
		c.log.Debug("cache hit: %s -> %s", truncate(text, 40), path)
	}
	return path, ok
}

// Has reports whether text already has an asset.
func (c *PhraseCache) Has(text string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[text]
	return ok
}

// Put writes audio to a new asset file and records it for text. If a
// concurrent caller stored text first, the new file is discarded and the
// existing path returned, so every text maps to exactly one asset.
func (c *PhraseCache) Put(text string, audio []byte) (string, error) {
	dir, err := c.ensureDir()
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "phrase-*"+c.ext)
	if err != nil {
		return "", fmt.Errorf("creating asset file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing asset file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing asset file: %w", err)
	}

	c.mu.Lock()
	if existing, ok := c.entries[text]; ok {
		c.mu.Unlock()
		os.Remove(path)
		c.log.Debug("cache store raced, keeping %s", existing)
		return existing, nil
	}
	c.entries[text] = path
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store: %s -> %s (%d bytes, %d entries)", truncate(text, 40), path, len(audio), size)
	return path, nil
}

// Len returns the number of cached phrases.
func (c *PhraseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *PhraseCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Dir returns the asset directory, or "" before the first store.
func (c *PhraseCache) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

// Close forgets every entry and removes the asset directory.
func (c *PhraseCache) Close() error {
	c.mu.Lock()
	dir := c.dir
	c.dir = ""
	c.entries = make(map[string]string)
	c.mu.Unlock()

	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing asset dir: %w", err)
	}
	c.log.Debug("cache: removed %s", dir)
	return nil
}

func (c *PhraseCache) ensureDir() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dir != "" {
		return c.dir, nil
	}
	dir, err := os.MkdirTemp(c.parent, "sentinel-voice-")
	if err != nil {
		return "", fmt.Errorf("creating asset dir: %w", err)
	}
	c.dir = dir
	c.log.Debug("cache: assets in %s", dir)
	return dir, nil
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
