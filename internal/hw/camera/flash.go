package camera

import (
	"context"

	"github.com/cjeanneret/PhotoGo/internal/hw/gpio"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// Flash wraps a Camera and drives a lamp on a GPIO pin for the duration
// of each capture:
// 1. Lamp pin HIGH (lamp on, lets the preview meter the scene)
// 2. Capture
// 3. Lamp pin LOW, also on failure
type Flash struct {
	cam  Camera
	gpio gpio.Driver
	pin  int
	log  *logsink.Sink
}

// WithFlash configures pin as an output, drives it LOW and returns the
// wrapped camera. Pin errors are logged; captures still go ahead.
func WithFlash(cam Camera, g gpio.Driver, pin int, log *logsink.Sink) *Flash {
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		log.Warn("Camera: flash pin %d setup: %v", pin, err)
	} else if err := g.WritePin(pin, gpio.Low); err != nil {
		log.Warn("Camera: flash pin %d: %v", pin, err)
	}
	return &Flash{cam: cam, gpio: g, pin: pin, log: log}
}

func (f *Flash) Capture(ctx context.Context, req Request) error {
	f.log.Verbose("Camera: flash on (pin %d -> HIGH)", f.pin)
	if err := f.gpio.WritePin(f.pin, gpio.High); err != nil {
		// A broken lamp should not cost the picture.
		f.log.Warn("Camera: flash pin %d: %v", f.pin, err)
	}
	defer func() {
		f.log.Verbose("Camera: flash off (pin %d -> LOW)", f.pin)
		if err := f.gpio.WritePin(f.pin, gpio.Low); err != nil {
			f.log.Warn("Camera: flash pin %d: %v", f.pin, err)
		}
	}()
	return f.cam.Capture(ctx, req)
}
