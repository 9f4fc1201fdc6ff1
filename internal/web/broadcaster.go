package web

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// StatusEvent represents a single log line pushed to SSE clients.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
}

// StatusBroadcaster distributes log lines to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	now     func() time.Time
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
		now:     time.Now,
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Subscribers returns the number of connected clients.
func (b *StatusBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends a message stamped with the current time to all
// subscribed clients.
// Messages are sent as JSON: {"t":"...","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.BroadcastAt(b.now().Format(time.RFC3339), level, msg)
}

// BroadcastAt sends a message carrying an existing timestamp, such as the
// one a log entry was written with.
func (b *StatusBroadcaster) BroadcastAt(ts, level, msg string) {
	payload, err := encodeEvent(StatusEvent{Time: ts, Level: level, Msg: msg})
	if err != nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// encodeEvent marshals evt without HTML escaping, so log text like
// "Home -> Idle" reaches clients verbatim.
func encodeEvent(evt StatusEvent) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(evt); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// BroadcastWriter returns an io.Writer that broadcasts every log line
// written to it. It is registered as a log sink mirror.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		level, ts, msg := splitLine(strings.TrimSpace(line))
		switch {
		case msg == "":
		case ts == "":
			w.b.Broadcast(level, msg)
		default:
			w.b.BroadcastAt(ts, level, msg)
		}
	}
	return len(p), nil
}

// splitLine takes a formatted log line "[LEVEL timestamp] message" apart.
// Lines in any other shape are passed through at level "info" with no
// timestamp.
func splitLine(line string) (level, ts, msg string) {
	if !strings.HasPrefix(line, "[") {
		return "info", "", line
	}
	end := strings.Index(line, "] ")
	if end < 0 {
		return "info", "", line
	}
	head := strings.Fields(line[1:end])
	if len(head) == 0 {
		return "info", "", line
	}
	if len(head) > 1 {
		ts = head[1]
	}
	return strings.ToLower(head[0]), ts, strings.TrimSpace(line[end+2:])
}
