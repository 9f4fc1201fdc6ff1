package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// RPi drives output pins through go-rpio's register mapping.
type RPi struct {
	log *logsink.Sink

	mu      sync.Mutex
	outputs map[int]rpio.Pin
}

// OpenRPi maps the GPIO registers. Needs a Raspberry Pi with access to
// /dev/gpiomem, or root.
func OpenRPi(log *logsink.Sink) (*RPi, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open GPIO: %w (is this a Raspberry Pi?)", err)
	}
	log.Verbose("GPIO: registers mapped")
	return &RPi{log: log, outputs: make(map[int]rpio.Pin)}, nil
}

func (r *RPi) SetupPin(pin int, mode PinMode) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	p := rpio.Pin(pin)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch mode {
	case Output:
		p.Output()
		r.outputs[pin] = p
	case Input:
		p.Input()
		delete(r.outputs, pin)
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	r.log.Verbose("GPIO: pin %d set to %s", pin, mode)
	return nil
}

func (r *RPi) WritePin(pin int, level Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.outputs[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotOutput, pin)
	}
	p.Write(state(level))
	return nil
}

func state(l Level) rpio.State {
	if l == High {
		return rpio.High
	}
	return rpio.Low
}

// Close switches every lamp off and leaves the pins as inputs before
// unmapping the registers.
func (r *RPi) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pin, p := range r.outputs {
		p.Write(rpio.Low)
		p.Input()
		delete(r.outputs, pin)
	}
	r.log.Verbose("GPIO: closed")
	return rpio.Close()
}
