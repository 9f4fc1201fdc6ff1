//go:build !linux

package touch

import (
	"fmt"
	"runtime"

	"github.com/cjeanneret/PhotoGo/internal/events"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// Evdev is only available on Linux.
type Evdev struct{}

func OpenEvdev(path string, width, height int, q *events.Queue, log *logsink.Sink) (*Evdev, error) {
	return nil, fmt.Errorf("input device %s: not supported on %s", path, runtime.GOOS)
}

func (e *Evdev) Start() {}

func (e *Evdev) Close() error { return nil }
