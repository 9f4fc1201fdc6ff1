package camera

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/PhotoGo/internal/hw/gpio"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls    []gpioCall
	setupErr error
	writeErr error
}

type gpioCall struct {
	op    string
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return d.setupErr
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return d.writeErr
}

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) writeCalls() []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

// fakeCommand writes an executable shell script and returns its path.
func fakeCommand(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-still")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func verboseSink() (*logsink.Sink, *bytes.Buffer) {
	var console bytes.Buffer
	return logsink.New(logsink.Options{MinLevel: logsink.LevelVerbose, Console: &console}), &console
}

func TestLibcameraStill_Args(t *testing.T) {
	c := NewLibcameraStill("", logsink.Discard())
	assert.Equal(t, "libcamera-still", c.Command)

	args := c.Args(Request{Path: "images/image4.jpg", Width: 1920, Height: 1080, Timeout: 5 * time.Second})
	assert.Equal(t, []string{
		"--width", "1920",
		"--height", "1080",
		"-o", "images/image4.jpg",
		"--metering", "centre",
		"--ev", "0",
		"--awb", "auto",
		"--timeout", "5000",
		"--preview", "0,0,1920,1080",
		"--fullscreen",
		"--brightness", "0",
		"--contrast", "1",
		"--saturation", "1",
		"--sharpness", "1",
		"--encoding", "jpg",
	}, args)
}

func TestLibcameraStill_ArgsWithTuning(t *testing.T) {
	c := NewLibcameraStill("rpicam-still", logsink.Discard())
	c.Tuning = Tuning{
		Metering:   "spot",
		EV:         -0.5,
		AWB:        "daylight",
		Brightness: 0.1,
		Contrast:   1.2,
		Saturation: 0,
		Sharpness:  2,
		Framerate:  30,
	}

	args := c.Args(Request{Path: "p.jpg", Width: 640, Height: 480, Timeout: 1500 * time.Millisecond})
	assert.Equal(t, []string{
		"--width", "640",
		"--height", "480",
		"-o", "p.jpg",
		"--metering", "spot",
		"--ev", "-0.5",
		"--awb", "daylight",
		"--timeout", "1500",
		"--preview", "0,0,640,480",
		"--fullscreen",
		"--brightness", "0.1",
		"--contrast", "1.2",
		"--saturation", "0",
		"--sharpness", "2",
		"--framerate", "30",
		"--encoding", "jpg",
	}, args)
}

func TestLibcameraStill_CaptureSuccess(t *testing.T) {
	log, console := verboseSink()
	// $6 is the -o argument.
	cmd := fakeCommand(t, `echo "preview started"; echo "still warning" >&2; printf jpeg > "$6"`)
	c := NewLibcameraStill(cmd, log)

	out := filepath.Join(t.TempDir(), "image1.jpg")
	err := c.Capture(context.Background(), Request{Path: out, Width: 64, Height: 48, Timeout: time.Second})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Contains(t, console.String(), "Camera stdout: preview started")
	assert.Contains(t, console.String(), "Camera stderr: still warning")
}

func TestLibcameraStill_NonZeroExit(t *testing.T) {
	c := NewLibcameraStill(fakeCommand(t, "exit 3"), logsink.Discard())
	out := filepath.Join(t.TempDir(), "image1.jpg")

	err := c.Capture(context.Background(), Request{Path: out, Timeout: time.Second})
	var capErr *CaptureError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, out, capErr.Path)
}

func TestLibcameraStill_NoOutputFile(t *testing.T) {
	c := NewLibcameraStill(fakeCommand(t, "exit 0"), logsink.Discard())
	out := filepath.Join(t.TempDir(), "image1.jpg")

	err := c.Capture(context.Background(), Request{Path: out, Timeout: time.Second})
	var capErr *CaptureError
	require.True(t, errors.As(err, &capErr))
	assert.Contains(t, err.Error(), "no image written")
}

func TestLibcameraStill_Timeout(t *testing.T) {
	c := NewLibcameraStill(fakeCommand(t, "exec sleep 5"), logsink.Discard())
	c.Grace = 200 * time.Millisecond

	start := time.Now()
	err := c.Capture(context.Background(), Request{Path: filepath.Join(t.TempDir(), "x.jpg")})
	var capErr *CaptureError
	require.True(t, errors.As(err, &capErr))
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestLibcameraStill_MissingCommand(t *testing.T) {
	c := NewLibcameraStill(filepath.Join(t.TempDir(), "does-not-exist"), logsink.Discard())
	err := c.Capture(context.Background(), Request{Path: "x.jpg", Timeout: time.Second})
	var capErr *CaptureError
	assert.True(t, errors.As(err, &capErr))
}

func TestMock_WritesDecodableJPEG(t *testing.T) {
	m := NewMock()
	out := filepath.Join(t.TempDir(), "image1.jpg")
	require.NoError(t, m.Capture(context.Background(), Request{Path: out, Width: 32, Height: 16}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
	assert.Len(t, m.Captures(), 1)
}

func TestMock_Fail(t *testing.T) {
	m := NewMock()
	m.Fail(1)
	out := filepath.Join(t.TempDir(), "image1.jpg")

	err := m.Capture(context.Background(), Request{Path: out})
	assert.ErrorIs(t, err, ErrMockFailure)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))

	assert.NoError(t, m.Capture(context.Background(), Request{Path: out}))
}

func TestWithFlash_PinInitializedLow(t *testing.T) {
	drv := &recordingDriver{}
	WithFlash(NewMock(), drv, 27, logsink.Discard())

	require.Len(t, drv.calls, 2)
	assert.Equal(t, gpioCall{op: "setup", pin: 27}, drv.calls[0])
	assert.Equal(t, gpioCall{op: "write", pin: 27, level: gpio.Low}, drv.calls[1])
}

func TestWithFlash_Sequence(t *testing.T) {
	drv := &recordingDriver{}
	mock := NewMock()
	cam := WithFlash(mock, drv, 27, logsink.Discard())
	drv.calls = nil // reset after init

	out := filepath.Join(t.TempDir(), "image1.jpg")
	require.NoError(t, cam.Capture(context.Background(), Request{Path: out, Width: 8, Height: 8}))

	assert.Equal(t, []gpioCall{
		{op: "write", pin: 27, level: gpio.High},
		{op: "write", pin: 27, level: gpio.Low},
	}, drv.writeCalls())
	assert.Len(t, mock.Captures(), 1)
}

func TestWithFlash_LampOffAfterFailure(t *testing.T) {
	drv := &recordingDriver{}
	mock := NewMock()
	mock.Fail(1)
	cam := WithFlash(mock, drv, 27, logsink.Discard())
	drv.calls = nil

	err := cam.Capture(context.Background(), Request{Path: filepath.Join(t.TempDir(), "x.jpg")})
	assert.ErrorIs(t, err, ErrMockFailure)

	writes := drv.writeCalls()
	require.Len(t, writes, 2)
	assert.Equal(t, gpio.Low, writes[1].level)
}

func TestWithFlash_SetupErrorIsLogged(t *testing.T) {
	log, console := verboseSink()
	drv := &recordingDriver{setupErr: errors.New("pin busy")}
	cam := WithFlash(NewMock(), drv, 27, log)

	assert.Contains(t, console.String(), "Camera: flash pin 27 setup: pin busy")
	assert.Empty(t, drv.writeCalls(), "no write to a pin that failed setup")

	out := filepath.Join(t.TempDir(), "image1.jpg")
	assert.NoError(t, cam.Capture(context.Background(), Request{Path: out, Width: 8, Height: 8}))
}

func TestWithFlash_InitialWriteErrorIsLogged(t *testing.T) {
	log, console := verboseSink()
	drv := &recordingDriver{writeErr: errors.New("bus error")}
	WithFlash(NewMock(), drv, 27, log)

	assert.Contains(t, console.String(), "Camera: flash pin 27: bus error")
}

func TestWithFlash_GPIOErrorDoesNotFailCapture(t *testing.T) {
	drv := &recordingDriver{writeErr: errors.New("bus error")}
	cam := WithFlash(NewMock(), drv, 27, logsink.Discard())

	out := filepath.Join(t.TempDir(), "image1.jpg")
	assert.NoError(t, cam.Capture(context.Background(), Request{Path: out, Width: 8, Height: 8}))
}

func TestImplementsCamera(t *testing.T) {
	var _ Camera = &LibcameraStill{}
	var _ Camera = NewMock()
	var _ Camera = &Flash{}
}
