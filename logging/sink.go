package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DurableSink persists formatted log blocks. The logger owns exactly one sink
// and calls it from a single flusher at a time.
type DurableSink interface {
	Write(block string) error
	Close() error
}

// NopSink discards everything. Used when file logging is disabled or no
// writable filesystem is available.
type NopSink struct{}

func (NopSink) Write(string) error { return nil }
func (NopSink) Close() error       { return nil }

// FileSink appends to a date-named file inside a directory, rotating the file
// when it grows past a size threshold and keeping only the newest maxFiles
// files around.
type FileSink struct {
	dir      string
	prefix   string
	maxBytes int64
	maxFiles int
}

// NewFileSink creates the log directory if needed. maxSizeMB and maxFiles
// fall back to 10 MB / 5 files when non-positive.
func NewFileSink(dir string, maxSizeMB, maxFiles int) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &FileSink{
		dir:      dir,
		prefix:   "app",
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		maxFiles: maxFiles,
	}, nil
}

func (s *FileSink) currentPath() string {
	name := fmt.Sprintf("%s-%s.log", s.prefix, time.Now().Format("2006-01-02"))
	return filepath.Join(s.dir, name)
}

func (s *FileSink) Write(block string) error {
	path := s.currentPath()
	if err := s.rotateIfNeeded(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("append log file: %w", err)
	}
	return nil
}

// rotateIfNeeded renames the current file with a timestamp suffix once it
// exceeds the size threshold, then prunes old files.
func (s *FileSink) rotateIfNeeded(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // nothing to rotate yet
	}
	if info.Size() <= s.maxBytes {
		return nil
	}
	rotated := fmt.Sprintf("%s.%s", path, time.Now().Format("20060102-150405"))
	if err := os.Rename(path, rotated); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	s.cleanup()
	return nil
}

// cleanup deletes every log file beyond maxFiles, newest-first by mtime.
// Best effort: listing or deletion errors are swallowed.
func (s *FileSink) cleanup() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	type logFile struct {
		path string
		mod  time.Time
	}
	var files []logFile
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasPrefix(ent.Name(), s.prefix+"-") {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{filepath.Join(s.dir, ent.Name()), info.ModTime()})
	}
	if len(files) <= s.maxFiles {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	for _, f := range files[s.maxFiles:] {
		os.Remove(f.path)
	}
}

func (s *FileSink) Close() error { return nil }
