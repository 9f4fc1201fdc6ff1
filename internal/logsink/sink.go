package logsink

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelVerbose Level = iota // subprocess output, per-tick detail
	LevelInfo                 // state changes, captures
	LevelWarn                 // degraded but continuing
	LevelError                // a fault routed to the error screen
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "VERBOSE"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel maps a config value to a Level. Unknown names give LevelInfo
// and ok=false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "debug", "trace":
		return LevelVerbose, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Entry is one buffered log record.
type Entry struct {
	Level   Level
	Time    time.Time
	Message string
}

// Format renders the entry as it appears in the log file.
func (e Entry) Format() string {
	return fmt.Sprintf("[%s %s] %s", e.Level, e.Time.Format(time.RFC3339), e.Message)
}

// FlushInterval is the period of the background flusher.
const FlushInterval = time.Second

// Options configures a Sink.
type Options struct {
	Path     string    // log file, opened in append mode on every flush
	MinLevel Level     // entries below are dropped in Append
	Console  io.Writer // mirror for every appended line. nil = os.Stdout
	Fallback io.Writer // where flush failures are reported. nil = os.Stderr
	Now      func() time.Time
}

// Sink is an append-only in-memory log drained to a file by a background
// flusher. Append may be called from any goroutine.
type Sink struct {
	path     string
	min      Level
	console  *log.Logger
	fallback *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries []Entry
	mirrors []io.Writer

	done chan struct{}
}

// New creates a sink. Call Start to begin periodic flushing.
func New(opts Options) *Sink {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = os.Stderr
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Sink{
		path:     opts.Path,
		min:      opts.MinLevel,
		console:  log.New(console, "[photobooth] ", log.LstdFlags|log.Lmicroseconds),
		fallback: log.New(fallback, "[photobooth] ", log.LstdFlags),
		now:      now,
		done:     make(chan struct{}),
	}
}

// AddMirror registers an extra writer that receives every appended line
// (for example the web status broadcaster).
func (s *Sink) AddMirror(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirrors = append(s.mirrors, w)
}

// Append records a message. Entries below the minimum level are dropped
// here and never stored.
func (s *Sink) Append(level Level, msg string) {
	if level < s.min {
		return
	}
	e := Entry{Level: level, Time: s.now(), Message: msg}
	line := e.Format()

	s.mu.Lock()
	s.entries = append(s.entries, e)
	mirrors := s.mirrors
	s.mu.Unlock()

	s.console.Print(line)
	for _, w := range mirrors {
		_, _ = io.WriteString(w, line+"\n")
	}
}

// Verbose logs at LevelVerbose.
func (s *Sink) Verbose(format string, args ...interface{}) {
	s.Append(LevelVerbose, fmt.Sprintf(format, args...))
}

// Info logs at LevelInfo.
func (s *Sink) Info(format string, args ...interface{}) {
	s.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs at LevelWarn.
func (s *Sink) Warn(format string, args ...interface{}) {
	s.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error logs at LevelError.
func (s *Sink) Error(format string, args ...interface{}) {
	s.Append(LevelError, fmt.Sprintf(format, args...))
}

// Pending returns the number of entries not yet flushed.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush writes buffered entries to the log file. The file write happens
// outside the lock. On failure the batch is reported to the fallback
// writer and dropped.
func (s *Sink) Flush() error {
	s.mu.Lock()
	batch := s.entries
	s.entries = nil
	s.mu.Unlock()

	if len(batch) == 0 || s.path == "" {
		return nil
	}

	var b strings.Builder
	for _, e := range batch {
		b.WriteString(e.Format())
		b.WriteByte('\n')
	}

	if err := appendFile(s.path, b.String()); err != nil {
		s.fallback.Printf("log flush of %d entries to %s failed: %v", len(batch), s.path, err)
		return err
	}
	return nil
}

func appendFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("write log file: %w", err)
	}
	return f.Close()
}

// Start launches the flusher. It flushes every interval and, once stop
// reads true on a wake, flushes a final time and exits.
func (s *Sink) Start(stop *atomic.Bool, interval time.Duration) {
	if interval <= 0 {
		interval = FlushInterval
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			stopping := stop.Load()
			_ = s.Flush()
			if stopping {
				return
			}
		}
	}()
}

// Wait blocks until the flusher has done its final flush.
func (s *Sink) Wait() {
	<-s.done
}

// Discard returns a sink with no file and no console output, for tests and
// components that were given no logger.
func Discard() *Sink {
	return New(Options{Console: io.Discard, Fallback: io.Discard})
}
