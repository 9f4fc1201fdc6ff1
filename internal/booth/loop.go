package booth

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/PhotoGo/internal/archive"
	"github.com/cjeanneret/PhotoGo/internal/config"
	"github.com/cjeanneret/PhotoGo/internal/events"
	"github.com/cjeanneret/PhotoGo/internal/hw/camera"
	"github.com/cjeanneret/PhotoGo/internal/hw/display"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// Canvas draws into the display's current back buffer.
type Canvas interface {
	Clear(bg uint32)
	DrawText(msg string, size float64)
	DrawImage(path string) error
}

// CaptureOutcome describes one TakingPicture attempt.
type CaptureOutcome struct {
	Index   int
	Path    string
	Message string // done sentence shown, empty on failure
	Err     error
	TakenAt time.Time
}

// Recorder receives capture outcomes. Record must not block.
type Recorder interface {
	Record(CaptureOutcome)
}

// Status is a snapshot of the loop, safe to read from other goroutines.
type Status struct {
	State     string    `json:"state"`
	LastImage string    `json:"lastImage,omitempty"`
	Captures  int       `json:"captures"`
	Failures  int       `json:"failures"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Options wires a Loop. Display, Canvas, Camera, Sequencer, Config, Queue
// and Log are required.
type Options struct {
	Display   display.Display
	Canvas    Canvas
	Camera    camera.Camera
	Sequencer *archive.Sequencer
	Config    *config.Config
	Queue     *events.Queue
	Log       *logsink.Sink
	Recorder  Recorder     // optional
	Stop      *atomic.Bool // set when Run returns. nil = private flag
	Timings   *Timings     // nil = from Config

	// Pick returns a done-sentence index in [0, n). nil = math/rand/v2.
	Pick func(n int) int
	// Sleep blocks for d or until ctx is done. nil = timer based.
	Sleep func(ctx context.Context, d time.Duration)
	Now   func() time.Time
}

// Loop is the kiosk control loop. Only the goroutine calling Tick or Run
// may touch the display, canvas and camera.
type Loop struct {
	disp    display.Display
	canvas  Canvas
	cam     camera.Camera
	seq     *archive.Sequencer
	cfg     *config.Config
	queue   *events.Queue
	log     *logsink.Sink
	rec     Recorder
	stop    *atomic.Bool
	timings Timings
	pick    func(int) int
	sleep   func(context.Context, time.Duration)
	now     func() time.Time

	state     State
	captures  int
	failures  int
	lastImage string

	status atomic.Pointer[Status]
}

// New creates a loop starting on the Home screen.
func New(o Options) *Loop {
	l := &Loop{
		disp:   o.Display,
		canvas: o.Canvas,
		cam:    o.Camera,
		seq:    o.Sequencer,
		cfg:    o.Config,
		queue:  o.Queue,
		log:    o.Log,
		rec:    o.Recorder,
		stop:   o.Stop,
		pick:   o.Pick,
		sleep:  o.Sleep,
		now:    o.Now,
		state:  Home,
	}
	if o.Timings != nil {
		l.timings = *o.Timings
	} else {
		l.timings = TimingsFrom(o.Config)
	}
	if l.stop == nil {
		l.stop = new(atomic.Bool)
	}
	if l.pick == nil {
		l.pick = rand.Intn
	}
	if l.sleep == nil {
		l.sleep = sleepContext
	}
	if l.now == nil {
		l.now = time.Now
	}
	l.publish()
	return l
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// State returns the state the next tick will run. Loop goroutine only.
func (l *Loop) State() State { return l.state }

// Status returns the last published snapshot.
func (l *Loop) Status() Status { return *l.status.Load() }

func (l *Loop) publish() {
	l.status.Store(&Status{
		State:     l.state.String(),
		LastImage: l.lastImage,
		Captures:  l.captures,
		Failures:  l.failures,
		UpdatedAt: l.now(),
	})
}

// Run ticks until ctx is cancelled, then raises the stop flag.
func (l *Loop) Run(ctx context.Context) {
	defer l.stop.Store(true)
	l.log.Info("Booth: loop started on %s", l.state)
	for ctx.Err() == nil {
		l.Tick(ctx)
	}
	l.log.Info("Booth: loop stopped on %s", l.state)
}

// Tick runs one iteration: drain input, render the current state, swap,
// pause, advance. It never returns an error; faults become log lines or
// a transition to Error. It returns the new current state.
func (l *Loop) Tick(ctx context.Context) State {
	batch := l.queue.Drain()
	if len(batch) > 0 {
		l.log.Verbose("Input: %d event(s) %v in %s", len(batch), batch, l.state)
	}

	step := Plan(l.state, batch, l.timings)
	next := step.Next
	ok := l.render(ctx, l.state)
	if !ok {
		next = step.Fault
	}

	if ok && step.Present {
		if err := l.disp.Swap(); err != nil {
			var swapErr *display.SwapError
			if errors.As(err, &swapErr) {
				l.log.Warn("Display: swap failed in %s, frame skipped: %v", l.state, swapErr.Err)
			} else {
				l.log.Warn("Display: swap failed in %s, frame skipped: %v", l.state, err)
			}
		}
	}

	if ok && step.Delay > 0 {
		l.sleep(ctx, step.Delay)
	}

	if next != l.state {
		l.log.Info("State: %s -> %s", l.state, next)
	}
	l.state = next
	l.publish()
	return next
}

// render performs the effect of s on the back buffer. It reports false
// only for a failed capture.
func (l *Loop) render(ctx context.Context, s State) bool {
	bg := uint32(l.cfg.BgColor)
	switch s {
	case Idle:
	case Home:
		l.canvas.Clear(bg)
		l.canvas.DrawText(l.cfg.PromptText, l.cfg.TextSize)
	case ReadyToTakePicture:
		l.canvas.Clear(bg)
		l.canvas.DrawText(l.cfg.ReadyText, l.cfg.TextSize)
	case ClearingScreen:
		l.canvas.Clear(bg)
	case TakingPicture:
		return l.takePicture(ctx)
	case Preview:
		l.showPreview()
	case Error:
		l.canvas.Clear(bg)
		if l.cfg.ErrorText != "" {
			l.canvas.DrawText(l.cfg.ErrorText, l.cfg.TextSize)
		}
	}
	return true
}

func (l *Loop) takePicture(ctx context.Context) bool {
	index := l.seq.NextIndex()
	path := l.seq.NextPath()
	outcome := CaptureOutcome{Index: index, Path: path, TakenAt: l.now()}

	// The capture program draws its own preview on the screen.
	if err := l.disp.ReleaseExclusive(); err != nil {
		l.log.Warn("Display: release before capture: %v", err)
	}
	l.log.Info("Camera: capturing %s", path)
	// Shutdown does not abort a capture; its own timeout bounds it.
	err := l.cam.Capture(context.WithoutCancel(ctx), camera.Request{
		Path:    path,
		Width:   l.cfg.Camera.Width,
		Height:  l.cfg.Camera.Height,
		Timeout: l.cfg.CaptureTimeout(),
	})
	if aerr := l.disp.AcquireExclusive(); aerr != nil {
		l.log.Error("Display: reacquire after capture: %v", aerr)
	}

	if err != nil {
		l.failures++
		l.log.Error("Camera: %v", err)
		outcome.Err = err
		l.record(outcome)
		return false
	}

	l.captures++
	l.lastImage = path
	msg := l.doneSentence()
	l.canvas.Clear(uint32(l.cfg.BgColor))
	l.canvas.DrawText(msg, l.cfg.TextSize)
	outcome.Message = msg
	l.record(outcome)
	return true
}

// doneSentence picks a completion message uniformly at random. The
// picked index is clamped into range.
func (l *Loop) doneSentence() string {
	n := len(l.cfg.DoneSentences)
	if n == 0 {
		return ""
	}
	i := l.pick(n)
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return l.cfg.DoneSentences[i]
}

func (l *Loop) showPreview() {
	path, err := l.seq.PreviousPath()
	if err != nil {
		l.log.Warn("Preview: %v", err)
		return
	}
	l.canvas.Clear(uint32(l.cfg.BgColor))
	if err := l.canvas.DrawImage(path); err != nil {
		l.log.Warn("Preview: %v", err)
	}
}

func (l *Loop) record(o CaptureOutcome) {
	if l.rec != nil {
		l.rec.Record(o)
	}
}
