package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingSink captures every durable write.
type recordingSink struct {
	mu     sync.Mutex
	blocks []string
	closed bool
}

func (s *recordingSink) Write(block string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, block)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.blocks, "")
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		configure Level
		emit      Level
		want      bool
	}{
		{"debug passes at debug", LevelDebug, LevelDebug, true},
		{"debug dropped at info", LevelInfo, LevelDebug, false},
		{"info passes at info", LevelInfo, LevelInfo, true},
		{"warn passes at info", LevelInfo, LevelWarn, true},
		{"error dropped at fatal", LevelFatal, LevelError, false},
		{"fatal passes at fatal", LevelFatal, LevelFatal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			log := New(Options{
				Level:      tt.configure,
				Console:    true,
				ConsoleOut: &out,
				ConsoleErr: &errOut,
			})
			log.log(tt.emit, "probe", nil)

			got := strings.Contains(out.String()+errOut.String(), "probe")
			if got != tt.want {
				t.Errorf("emit %v at configured %v: emitted=%v, want %v", tt.emit, tt.configure, got, tt.want)
			}
		})
	}
}

func TestConsoleRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	log := New(Options{Level: LevelDebug, Console: true, ConsoleOut: &out, ConsoleErr: &errOut})

	log.Info("plain info")
	log.Warn("scary warn")

	if !strings.Contains(out.String(), "[INFO] plain info") {
		t.Errorf("stdout missing info line: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "[WARN] scary warn") {
		t.Errorf("stderr missing warn line: %q", errOut.String())
	}
	if strings.Contains(out.String(), "scary warn") {
		t.Error("warn leaked to stdout")
	}
}

func TestDurableFormatCarriesChildFields(t *testing.T) {
	sink := &recordingSink{}
	log := New(Options{Level: LevelDebug, Sink: sink, FlushInterval: time.Hour})
	defer log.Stop()

	child := log.WithSource("upstream").WithRequest("req_1_abc", "user-9")
	child.Info("page fetched", map[string]interface{}{"page": 2})
	log.Flush()

	got := sink.joined()
	for _, want := range []string{
		"[INFO]",
		"[upstream]",
		"[Request: req_1_abc]",
		"[Session: " + log.SessionID() + "]",
		"[User: user-9]",
		"page fetched",
		`"page": 2`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("durable block missing %q:\n%s", want, got)
		}
	}
}

func TestErrorForcesImmediateFlush(t *testing.T) {
	sink := &recordingSink{}
	// Ticker far away so only the severity path can drain the buffer.
	log := New(Options{Level: LevelDebug, Sink: sink, FlushInterval: time.Hour})
	defer log.Stop()

	log.Info("buffered")
	if got := sink.joined(); got != "" {
		t.Fatalf("info flushed early: %q", got)
	}

	log.Error("boom")
	got := sink.joined()
	if !strings.Contains(got, "boom") {
		t.Fatalf("error entry not flushed synchronously: %q", got)
	}
	if !strings.Contains(got, "buffered") {
		t.Errorf("earlier buffered entry lost on forced flush: %q", got)
	}
}

func TestFlushSnapshotClearsBuffer(t *testing.T) {
	sink := &recordingSink{}
	log := New(Options{Level: LevelDebug, Sink: sink, FlushInterval: time.Hour})
	defer log.Stop()

	log.Info("first")
	log.Flush()
	log.Flush() // second drain of an empty buffer must write nothing

	sink.mu.Lock()
	writes := len(sink.blocks)
	sink.mu.Unlock()
	if writes != 1 {
		t.Errorf("got %d sink writes, want 1 (no duplicate drain)", writes)
	}

	log.Info("second")
	log.Flush()
	got := sink.joined()
	if strings.Count(got, "first") != 1 || strings.Count(got, "second") != 1 {
		t.Errorf("entries lost or duplicated across flushes:\n%s", got)
	}
}

func TestStopFlushesAndCloses(t *testing.T) {
	sink := &recordingSink{}
	log := New(Options{Level: LevelDebug, Sink: sink, FlushInterval: time.Hour})

	log.Info("last words")
	log.Stop()
	log.Stop() // idempotent

	if !strings.Contains(sink.joined(), "last words") {
		t.Error("Stop did not flush remaining entries")
	}
	if !sink.closed {
		t.Error("Stop did not close the sink")
	}
}
