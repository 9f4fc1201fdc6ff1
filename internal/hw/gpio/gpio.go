package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return fmt.Sprintf("PinMode(%d)", int(m))
}

// MaxPin is the highest BCM number on the 40-pin header.
const MaxPin = 27

// ErrNotOutput is returned when writing a pin that was not set up as an output.
var ErrNotOutput = errors.New("pin is not an output")

// Driver switches output pins. The booth only drives lamps, so there is
// no read path.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	Close() error
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, maps the Raspberry Pi registers.
func NewDriver(mock bool, log *logsink.Sink) (Driver, error) {
	if mock {
		log.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(log), nil
	}
	return OpenRPi(log)
}

func checkPin(pin int) error {
	if pin < 0 || pin > MaxPin {
		return fmt.Errorf("BCM pin %d out of range 0-%d", pin, MaxPin)
	}
	return nil
}

// MockDriver logs every call and enforces the same pin rules as the real
// driver. Used for development on PC.
type MockDriver struct {
	log *logsink.Sink

	mu      sync.Mutex
	outputs map[int]Level
}

// NewMockDriver creates a mock driver logging to log.
func NewMockDriver(log *logsink.Sink) *MockDriver {
	return &MockDriver{log: log, outputs: make(map[int]Level)}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch mode {
	case Output:
		m.outputs[pin] = Low
	case Input:
		delete(m.outputs, pin)
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	m.log.Verbose("GPIO: pin %d set to %s (mock)", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.outputs[pin]; !ok {
		return fmt.Errorf("%w: %d", ErrNotOutput, pin)
	}
	m.outputs[pin] = level
	m.log.Verbose("GPIO: pin %d -> %s (mock)", pin, level)
	return nil
}

func (m *MockDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pin := range m.outputs {
		delete(m.outputs, pin)
	}
	m.log.Verbose("GPIO: closed (mock)")
	return nil
}
