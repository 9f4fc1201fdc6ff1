package logsink

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func newTestSink(t *testing.T, min Level) (*Sink, string, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.txt")
	var console bytes.Buffer
	s := New(Options{
		Path:     path,
		MinLevel: min,
		Console:  &console,
		Fallback: &bytes.Buffer{},
		Now:      func() time.Time { return fixed },
	})
	return s, path, &console
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestEntry_Format(t *testing.T) {
	e := Entry{Level: LevelWarn, Time: fixed, Message: "swap failed"}
	assert.Equal(t, "[WARN 2024-05-01T12:30:00Z] swap failed", e.Format())
}

func TestAppend_BelowMinimumIsDropped(t *testing.T) {
	s, _, console := newTestSink(t, LevelInfo)

	s.Verbose("hidden %d", 1)
	assert.Equal(t, 0, s.Pending())
	assert.Empty(t, console.String())

	s.Info("shown")
	s.Error("bad")
	assert.Equal(t, 2, s.Pending())
	assert.Contains(t, console.String(), "[INFO 2024-05-01T12:30:00Z] shown")
}

func TestFlush_WritesLinesAndEmptiesBuffer(t *testing.T) {
	s, path, _ := newTestSink(t, LevelVerbose)

	s.Verbose("a")
	s.Info("b")
	require.NoError(t, s.Flush())

	assert.Equal(t, 0, s.Pending())
	assert.Equal(t,
		"[VERBOSE 2024-05-01T12:30:00Z] a\n[INFO 2024-05-01T12:30:00Z] b\n",
		readFile(t, path))

	s.Warn("c")
	require.NoError(t, s.Flush())
	assert.True(t, strings.HasSuffix(readFile(t, path), "[WARN 2024-05-01T12:30:00Z] c\n"), "flushes append")
}

func TestFlush_NothingPendingDoesNotCreateFile(t *testing.T) {
	s, path, _ := newTestSink(t, LevelInfo)
	require.NoError(t, s.Flush())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFlush_FailureGoesToFallback(t *testing.T) {
	var fallback bytes.Buffer
	s := New(Options{
		Path:     filepath.Join(t.TempDir(), "missing-dir", "log.txt"),
		Console:  &bytes.Buffer{},
		Fallback: &fallback,
	})
	s.Info("lost")

	err := s.Flush()
	require.Error(t, err)
	assert.Contains(t, fallback.String(), "log flush of 1 entries")
	assert.Equal(t, 0, s.Pending())
}

func TestAddMirror_ReceivesLines(t *testing.T) {
	s, _, _ := newTestSink(t, LevelInfo)
	var mirror bytes.Buffer
	s.AddMirror(&mirror)

	s.Info("mirrored")
	assert.Equal(t, "[INFO 2024-05-01T12:30:00Z] mirrored\n", mirror.String())
}

func TestStart_FinalFlushOnStop(t *testing.T) {
	s, path, _ := newTestSink(t, LevelInfo)
	var stop atomic.Bool
	s.Start(&stop, 10*time.Millisecond)

	s.Info("before stop")
	stop.Store(true)
	s.Info("right at stop")

	waited := make(chan struct{})
	go func() {
		s.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("flusher did not exit after stop flag")
	}

	content := readFile(t, path)
	assert.Contains(t, content, "before stop")
	assert.Contains(t, content, "right at stop")
}

func TestAppend_ConcurrentWriters(t *testing.T) {
	s, path, _ := newTestSink(t, LevelInfo)
	var stop atomic.Bool
	s.Start(&stop, 5*time.Millisecond)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				s.Info("line")
			}
		}()
	}
	wg.Wait()
	stop.Store(true)
	s.Wait()

	assert.Equal(t, 1000, strings.Count(readFile(t, path), "] line\n"))
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"verbose", LevelVerbose, true},
		{"INFO", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"loud", LevelInfo, false},
	}
	for _, tc := range cases {
		got, ok := ParseLevel(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}
