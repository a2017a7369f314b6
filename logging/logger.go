package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one observability record.
type Entry struct {
	Time      time.Time
	Level     Level
	Message   string
	Data      map[string]interface{}
	Source    string
	RequestID string
	UserID    string
}

// Options configures a root logger. Zero values get sane defaults.
type Options struct {
	Level             Level
	Console           bool
	ConsoleOut        io.Writer // defaults to os.Stdout
	ConsoleErr        io.Writer // defaults to os.Stderr, used for WARN and above
	Sink              DurableSink
	FlushInterval     time.Duration // defaults to 5s
	IncludeStackTrace bool          // dump a stack on ERROR/FATAL console output
}

// core is the shared state behind a root logger and all of its children:
// one buffer, one sink, one flush ticker.
type core struct {
	opts      Options
	sessionID string

	mu     sync.Mutex
	buf    []Entry
	closed bool

	ticker *time.Ticker
	done   chan struct{}
}

// Logger emits to a synchronous console sink and an asynchronous buffered
// durable sink, both gated by the same configured level. Construct one root
// per process and pass it around; children are views that pin source and
// request correlation fields.
type Logger struct {
	c         *core
	source    string
	requestID string
	userID    string
}

// New builds a root logger. The session id is stamped once here and appears
// on every durable entry for the lifetime of the process.
func New(opts Options) *Logger {
	if opts.ConsoleOut == nil {
		opts.ConsoleOut = os.Stdout
	}
	if opts.ConsoleErr == nil {
		opts.ConsoleErr = os.Stderr
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 5 * time.Second
	}
	c := &core{
		opts:      opts,
		sessionID: uuid.NewString(),
		done:      make(chan struct{}),
	}
	if _, nop := opts.Sink.(NopSink); !nop {
		c.ticker = time.NewTicker(opts.FlushInterval)
		go c.flushLoop()
	}
	return &Logger{c: c}
}

func (l *Logger) SessionID() string { return l.c.sessionID }

// WithSource returns a child that stamps every entry with source. Children
// share the parent's buffer, sink and ticker.
func (l *Logger) WithSource(source string) *Logger {
	child := *l
	child.source = source
	return &child
}

// WithRequest pins request correlation fields onto a child.
func (l *Logger) WithRequest(requestID, userID string) *Logger {
	child := *l
	child.requestID = requestID
	child.userID = userID
	return &child
}

func (l *Logger) Debug(msg string, data ...map[string]interface{}) {
	l.log(LevelDebug, msg, first(data))
}

func (l *Logger) Info(msg string, data ...map[string]interface{}) {
	l.log(LevelInfo, msg, first(data))
}

func (l *Logger) Warn(msg string, data ...map[string]interface{}) {
	l.log(LevelWarn, msg, first(data))
}

func (l *Logger) Error(msg string, data ...map[string]interface{}) {
	l.log(LevelError, msg, first(data))
}

func (l *Logger) Fatal(msg string, data ...map[string]interface{}) {
	l.log(LevelFatal, msg, first(data))
}

func first(data []map[string]interface{}) map[string]interface{} {
	if len(data) > 0 {
		return data[0]
	}
	return nil
}

func (l *Logger) log(level Level, msg string, data map[string]interface{}) {
	if level < l.c.opts.Level {
		return
	}
	e := Entry{
		Time:      time.Now(),
		Level:     level,
		Message:   msg,
		Data:      data,
		Source:    l.source,
		RequestID: l.requestID,
		UserID:    l.userID,
	}
	l.c.emitConsole(e)
	l.c.enqueue(e)
}

func (c *core) emitConsole(e Entry) {
	if !c.opts.Console {
		return
	}
	out := c.opts.ConsoleOut
	if e.Level >= LevelWarn {
		out = c.opts.ConsoleErr
	}
	line := fmt.Sprintf("[%s] %s", e.Level, e.Message)
	if e.Data != nil {
		if b, err := json.Marshal(e.Data); err == nil {
			line += " " + string(b)
		}
	}
	fmt.Fprintln(out, line)
	if e.Level >= LevelError && c.opts.IncludeStackTrace {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		fmt.Fprintln(out, string(buf[:n]))
	}
}

func (c *core) enqueue(e Entry) {
	if _, nop := c.opts.Sink.(NopSink); nop {
		return
	}
	c.mu.Lock()
	c.buf = append(c.buf, e)
	c.mu.Unlock()
	// Severe entries must not wait for the ticker to hit disk.
	if e.Level >= LevelError {
		c.flush()
	}
}

func (c *core) flushLoop() {
	for {
		select {
		case <-c.ticker.C:
			c.flush()
		case <-c.done:
			return
		}
	}
}

// flush snapshots and clears the buffer before touching the sink, so entries
// appended while the write is in flight land in the next cycle instead of
// being lost or duplicated. Sink failures go to the console and stop there.
func (c *core) flush() {
	c.mu.Lock()
	if len(c.buf) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buf
	c.buf = nil
	c.mu.Unlock()

	var b strings.Builder
	for _, e := range batch {
		c.formatEntry(&b, e)
	}
	if err := c.opts.Sink.Write(b.String()); err != nil {
		fmt.Fprintf(c.opts.ConsoleErr, "[ERROR] log sink write failed: %v\n", err)
	}
}

func (c *core) formatEntry(b *strings.Builder, e Entry) {
	b.WriteString("[" + e.Time.Format("2006-01-02 15:04:05.000") + "]")
	b.WriteString(" [" + e.Level.String() + "]")
	if e.Source != "" {
		b.WriteString(" [" + e.Source + "]")
	}
	if e.RequestID != "" {
		b.WriteString(" [Request: " + e.RequestID + "]")
	}
	b.WriteString(" [Session: " + c.sessionID + "]")
	if e.UserID != "" {
		b.WriteString(" [User: " + e.UserID + "]")
	}
	b.WriteString(" " + e.Message + "\n")
	if e.Data != nil {
		if pretty, err := json.MarshalIndent(e.Data, "", "  "); err == nil {
			b.WriteString("Data: " + string(pretty) + "\n")
		}
	}
}

// Flush drains buffered entries to the durable sink synchronously.
func (l *Logger) Flush() { l.c.flush() }

// Stop flushes whatever is left, stops the ticker and closes the sink.
// Safe to call more than once.
func (l *Logger) Stop() {
	c := l.c
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.ticker != nil {
		c.ticker.Stop()
		close(c.done)
	}
	c.flush()
	if err := c.opts.Sink.Close(); err != nil {
		fmt.Fprintf(c.opts.ConsoleErr, "[ERROR] log sink close failed: %v\n", err)
	}
}
