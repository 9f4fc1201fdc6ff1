package display

import (
	"errors"
	"fmt"
)

// Display is the double-buffered screen. Only the main loop may call it.
// Drawing always goes to BackBuffer; Swap presents it.
type Display interface {
	// AcquireExclusive takes (or takes back) ownership of the screen.
	AcquireExclusive() error
	// ReleaseExclusive cedes the screen, e.g. to an external preview.
	ReleaseExclusive() error
	// BackBuffer returns the frame that the next Swap presents.
	BackBuffer() *Frame
	// Swap presents the back buffer. It fails with *SwapError.
	Swap() error
	// Size returns the visible resolution in pixels.
	Size() (width, height int)
	Close() error
}

// ErrReleased is returned when the display is used while ceded.
var ErrReleased = errors.New("display released")

// SwapError reports a failed page flip. The frame is not presented.
type SwapError struct {
	Err error
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("swap buffers: %v", e.Err)
}

func (e *SwapError) Unwrap() error {
	return e.Err
}
