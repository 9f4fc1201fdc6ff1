package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// DefaultGrace is added to the request timeout to bound the whole
// subprocess run (startup, preview, encode).
const DefaultGrace = 5 * time.Second

// LibcameraStill captures by running libcamera-still (or a compatible
// command such as rpicam-still). The command draws its own fullscreen
// preview, so the caller must have released the display.
type LibcameraStill struct {
	Command string
	Grace   time.Duration
	Tuning  Tuning
	log     *logsink.Sink
}

// Tuning holds the exposure and colour options handed to the capture
// program. Values are passed through as given; libcamera-still checks
// their ranges.
type Tuning struct {
	Metering   string  // centre, spot, average, custom
	EV         float64 // exposure compensation in stops
	AWB        string  // auto, incandescent, tungsten, fluorescent, indoor, daylight, cloudy, custom
	Brightness float64 // -1 to 1
	Contrast   float64
	Saturation float64
	Sharpness  float64
	Framerate  float64 // <= 0 keeps the camera default
}

// DefaultTuning matches libcamera-still's own defaults.
func DefaultTuning() Tuning {
	return Tuning{
		Metering:   "centre",
		AWB:        "auto",
		Contrast:   1,
		Saturation: 1,
		Sharpness:  1,
	}
}

// NewLibcameraStill creates a subprocess camera. An empty command means
// "libcamera-still".
func NewLibcameraStill(command string, log *logsink.Sink) *LibcameraStill {
	if command == "" {
		command = "libcamera-still"
	}
	return &LibcameraStill{Command: command, Grace: DefaultGrace, Tuning: DefaultTuning(), log: log}
}

// Args returns the command line arguments for req.
func (c *LibcameraStill) Args(req Request) []string {
	t := c.Tuning
	args := []string{
		"--width", strconv.Itoa(req.Width),
		"--height", strconv.Itoa(req.Height),
		"-o", req.Path,
		"--metering", t.Metering,
		"--ev", formatFloat(t.EV),
		"--awb", t.AWB,
		"--timeout", strconv.FormatInt(req.Timeout.Milliseconds(), 10),
		"--preview", fmt.Sprintf("0,0,%d,%d", req.Width, req.Height),
		"--fullscreen",
		"--brightness", formatFloat(t.Brightness),
		"--contrast", formatFloat(t.Contrast),
		"--saturation", formatFloat(t.Saturation),
		"--sharpness", formatFloat(t.Sharpness),
	}
	if t.Framerate > 0 {
		args = append(args, "--framerate", formatFloat(t.Framerate))
	}
	return append(args, "--encoding", "jpg")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Capture runs the command and waits for it. Non-zero exit, deadline
// expiry or a missing output file all give a *CaptureError.
func (c *LibcameraStill) Capture(ctx context.Context, req Request) error {
	ctx, cancel := context.WithTimeout(ctx, req.Timeout+c.Grace)
	defer cancel()

	args := c.Args(req)
	c.log.Verbose("Camera: %s %s", c.Command, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, c.Command, args...)
	stdout := &lineLogger{log: c.log, prefix: "Camera stdout: "}
	stderr := &lineLogger{log: c.log, prefix: "Camera stderr: "}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	stdout.flush()
	stderr.flush()

	if ctx.Err() == context.DeadlineExceeded {
		return &CaptureError{Path: req.Path, Err: fmt.Errorf("timed out after %v", time.Since(start).Round(time.Millisecond))}
	}
	if err != nil {
		return &CaptureError{Path: req.Path, Err: err}
	}
	if err := checkOutput(req.Path); err != nil {
		return &CaptureError{Path: req.Path, Err: err}
	}

	c.log.Verbose("Camera: wrote %s in %v", req.Path, time.Since(start).Round(time.Millisecond))
	return nil
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("no image written: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("image file is empty")
	}
	return nil
}

// lineLogger forwards complete output lines to the log at VERBOSE.
type lineLogger struct {
	log    *logsink.Sink
	prefix string

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// partial line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

func (w *lineLogger) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line != "" {
		w.log.Verbose("%s%s", w.prefix, line)
	}
}
