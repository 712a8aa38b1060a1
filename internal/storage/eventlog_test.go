package storage

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVLogRecord(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	path := filepath.Join(t.TempDir(), "csv_logs", "security_log.csv")

	l, err := NewCSVLog(path, log)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	at := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	events := []domain.Event{
		{At: at, Category: domain.CategoryCameraStart, Spoken: true},
		{At: at, Category: domain.CategoryRemoveAccessory, Subject: "Dana, Scully",
			Accessories: []domain.Accessory{domain.AccessoryMask, domain.AccessoryCap}},
		{At: at, Category: domain.CategoryScanCompleteThreat, Subject: "Unknown", Confidence: 0.875, Spoken: true},
	}
	for _, e := range events {
		if err := l.Record(e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	rows := readRows(t, path)
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][5] != "spoken" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if got := rows[2]; got[2] != "Dana, Scully" || got[4] != "mask;cap" || got[5] != "false" || got[3] != "" {
		t.Fatalf("unexpected accessory row %v", got)
	}
	if got := rows[3]; got[0] != "2026-03-01 09:15:00" || got[1] != "scan_complete_threat" || got[3] != "0.875" {
		t.Fatalf("unexpected threat row %v", got)
	}

	// Reopening appends without a second header.
	l2, err := NewCSVLog(path, log)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := l2.Record(events[0]); err != nil {
		t.Fatalf("record: %v", err)
	}
	if rows := readRows(t, path); len(rows) != 5 {
		t.Fatalf("expected 5 rows after reopen, got %d", len(rows))
	}
}

func TestCSVLogConcurrentRecord(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	path := filepath.Join(t.TempDir(), "log.csv")
	l, err := NewCSVLog(path, log)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Record(domain.Event{At: time.Now(), Category: domain.CategoryFaceDetected, Subject: "Unknown"})
		}()
	}
	wg.Wait()

	if rows := readRows(t, path); len(rows) != 21 {
		t.Fatalf("expected 21 rows, got %d", len(rows))
	}
}

func TestCSVLogExport(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "log.csv")
	l, err := NewCSVLog(path, log)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := l.Record(domain.Event{At: time.Now(), Category: domain.CategoryScanCompleteSafe, Subject: "Dana"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	dst := filepath.Join(dir, "exports", "exported_log.csv")
	n, err := l.Export(dst)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want, _ := os.ReadFile(path)
	got, _ := os.ReadFile(dst)
	if n != int64(len(want)) || string(got) != string(want) {
		t.Fatalf("export copied %d bytes, content mismatch", n)
	}

	os.Remove(path)
	if _, err := l.Export(dst); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
