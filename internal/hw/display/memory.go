package display

import (
	"errors"
	"sync"
)

// Memory is a Display backed by two RAM frames. It is used in mock mode
// and in tests; FailSwaps makes the next n swaps fail.
type Memory struct {
	mu       sync.Mutex
	frames   [2]*Frame
	back     int
	released bool
	swaps    int
	failures int
	failNext int
}

// NewMemory creates a double-buffered in-memory display.
func NewMemory(width, height int) *Memory {
	return &Memory{
		frames: [2]*Frame{NewFrame(width, height), NewFrame(width, height)},
		back:   1,
	}
}

func (m *Memory) AcquireExclusive() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = false
	return nil
}

func (m *Memory) ReleaseExclusive() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

// Released reports whether the display is currently ceded.
func (m *Memory) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

func (m *Memory) BackBuffer() *Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames[m.back]
}

// Front returns the frame currently presented.
func (m *Memory) Front() *Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames[1-m.back]
}

func (m *Memory) Swap() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		m.failures++
		return &SwapError{Err: ErrReleased}
	}
	if m.failNext > 0 {
		m.failNext--
		m.failures++
		return &SwapError{Err: errInjected}
	}
	m.back = 1 - m.back
	m.swaps++
	return nil
}

// FailSwaps makes the next n calls to Swap fail.
func (m *Memory) FailSwaps(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// Swaps returns the number of successful swaps.
func (m *Memory) Swaps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swaps
}

// SwapFailures returns the number of failed swaps.
func (m *Memory) SwapFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *Memory) Size() (int, int) {
	return m.frames[0].Width, m.frames[0].Height
}

func (m *Memory) Close() error { return nil }

var errInjected = errors.New("injected swap failure")
