package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileSinkAppends(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, 10, 5)
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Write("first block\n"); err != nil {
		t.Fatal(err)
	}
	if err := sink.Write("second block\n"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(sink.currentPath())
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "first block\nsecond block\n" {
		t.Errorf("file content = %q", got)
	}
}

func TestFileSinkRotation(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	sink.maxBytes = 32 // shrink the threshold so the test stays small

	if err := sink.Write(strings.Repeat("x", 64) + "\n"); err != nil {
		t.Fatal(err)
	}
	// The oversized file rotates away before this write.
	if err := sink.Write("fresh\n"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var rotated, current int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".log") {
			current++
		} else {
			rotated++
		}
	}
	if current != 1 || rotated != 1 {
		t.Errorf("got %d current and %d rotated files, want 1 and 1", current, rotated)
	}

	data, _ := os.ReadFile(sink.currentPath())
	if got := string(data); got != "fresh\n" {
		t.Errorf("fresh file content = %q, want %q", got, "fresh\n")
	}
}

func TestFileSinkRetention(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, 10, 3)
	if err != nil {
		t.Fatal(err)
	}

	// Seed six log files with strictly increasing mtimes.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		name := filepath.Join(dir, sink.prefix+"-2026-01-0"+string(rune('1'+i))+".log")
		if err := os.WriteFile(name, []byte("old\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(name, ts, ts); err != nil {
			t.Fatal(err)
		}
	}

	sink.cleanup()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d files after cleanup, want 3", len(entries))
	}
	// The three newest (04..06) survive.
	for _, e := range entries {
		if e.Name() < sink.prefix+"-2026-01-04.log" {
			t.Errorf("old file %s survived retention", e.Name())
		}
	}
}

func TestNopSink(t *testing.T) {
	var s NopSink
	if err := s.Write("anything"); err != nil {
		t.Errorf("NopSink.Write returned %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("NopSink.Close returned %v", err)
	}
}
