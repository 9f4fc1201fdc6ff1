package booth

import (
	"fmt"
	"time"

	"github.com/cjeanneret/PhotoGo/internal/config"
	"github.com/cjeanneret/PhotoGo/internal/events"
)

// State is the screen the booth is currently on.
type State int

const (
	Idle State = iota
	Home
	ReadyToTakePicture
	ClearingScreen
	TakingPicture
	Preview
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Home:
		return "Home"
	case ReadyToTakePicture:
		return "ReadyToTakePicture"
	case ClearingScreen:
		return "ClearingScreen"
	case TakingPicture:
		return "TakingPicture"
	case Preview:
		return "Preview"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultIdlePoll is how long an Idle tick waits before draining input again.
const DefaultIdlePoll = 50 * time.Millisecond

// Timings holds the post-render delay of each timed state.
type Timings struct {
	Ready    time.Duration
	Done     time.Duration
	Preview  time.Duration
	Error    time.Duration
	IdlePoll time.Duration
}

// TimingsFrom reads the delays from the configuration.
func TimingsFrom(cfg *config.Config) Timings {
	return Timings{
		Ready:    cfg.ReadyDelay(),
		Done:     cfg.DoneDelay(),
		Preview:  cfg.PreviewDelay(),
		Error:    cfg.ErrorDelay(),
		IdlePoll: DefaultIdlePoll,
	}
}

// Step is what one tick does in a given state.
type Step struct {
	Next    State         // successor when the state's effect succeeds
	Fault   State         // successor when it fails
	Present bool          // swap the back buffer after rendering
	Delay   time.Duration // blocking pause after the swap
}

// Plan is the transition function. Input is evaluated against the state
// the tick started in, so only Idle reacts to it: a PointerDown anywhere
// in the batch arms the booth, and at most once per tick.
func Plan(s State, batch []events.Event, t Timings) Step {
	switch s {
	case Idle:
		if events.HasPointerDown(batch) {
			return Step{Next: ReadyToTakePicture, Fault: ReadyToTakePicture}
		}
		return Step{Next: Idle, Fault: Idle, Delay: t.IdlePoll}
	case Home:
		return Step{Next: Idle, Fault: Idle, Present: true}
	case ReadyToTakePicture:
		return Step{Next: ClearingScreen, Fault: ClearingScreen, Present: true, Delay: t.Ready}
	case ClearingScreen:
		return Step{Next: TakingPicture, Fault: TakingPicture, Present: true}
	case TakingPicture:
		return Step{Next: Preview, Fault: Error, Present: true, Delay: t.Done}
	case Preview:
		return Step{Next: Home, Fault: Home, Present: true, Delay: t.Preview}
	case Error:
		return Step{Next: Home, Fault: Home, Present: true, Delay: t.Error}
	default:
		// Unknown values recover through the error screen.
		return Step{Next: Error, Fault: Error}
	}
}
