// Package storage persists what the station needs across restarts: the
// screening event log and the operator settings.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Compile-time interface check.
var _ domain.EventLog = (*CSVLog)(nil)

// DefaultEventLogPath is where the screening log lives unless configured.
const DefaultEventLogPath = "csv_logs/security_log.csv"

const eventTimeLayout = "2006-01-02 15:04:05"

var eventHeader = []string{"timestamp", "event", "subject", "confidence", "accessories", "spoken"}

// CSVLog appends screening events to a CSV file. Safe for concurrent
// access.
type CSVLog struct {
	mu   sync.Mutex
	path string
	log  *logger.Logger
}

// NewCSVLog opens (or creates) the log at path and writes the header row
// when the file is new.
func NewCSVLog(path string, log *logger.Logger) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
	}
	l := &CSVLog{path: path, log: log}
	err := l.appendRows(func(f *os.File, w *csv.Writer) error {
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.Size() > 0 {
			return nil
		}
		return w.Write(eventHeader)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the file the log writes to.
func (l *CSVLog) Path() string { return l.path }

// Record appends one event.
func (l *CSVLog) Record(e domain.Event) error {
	row := []string{
		e.At.Format(eventTimeLayout),
		string(e.Category),
		e.Subject,
		"",
		accessoryList(e.Accessories),
		strconv.FormatBool(e.Spoken),
	}
	if e.Confidence > 0 {
		row[3] = strconv.FormatFloat(e.Confidence, 'f', 3, 64)
	}
	err := l.appendRows(func(_ *os.File, w *csv.Writer) error {
		return w.Write(row)
	})
	if err != nil {
		return fmt.Errorf("recording %s event: %w", e.Category, err)
	}
	l.log.Debug("logged %s event for %q", e.Category, e.Subject)
	return nil
}

// Export copies the log to dst and returns the number of bytes written.
// It fails with domain.ErrNotFound when nothing has been logged yet.
func (l *CSVLog) Export(dst string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("event log %s: %w", l.path, domain.ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("exporting event log: %w", err)
	}
	l.log.Info("event log exported to %s (%d bytes)", dst, n)
	return n, nil
}

func (l *CSVLog) appendRows(write func(f *os.File, w *csv.Writer) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := write(f, w); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func accessoryList(items []domain.Accessory) string {
	names := make([]string, len(items))
	for i, a := range items {
		names[i] = string(a)
	}
	return strings.Join(names, ";")
}
