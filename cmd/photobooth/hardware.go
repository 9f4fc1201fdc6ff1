package main

import (
	"fmt"
	"io"

	"github.com/cjeanneret/PhotoGo/internal/archive"
	"github.com/cjeanneret/PhotoGo/internal/config"
	"github.com/cjeanneret/PhotoGo/internal/events"
	"github.com/cjeanneret/PhotoGo/internal/hw/camera"
	"github.com/cjeanneret/PhotoGo/internal/hw/display"
	"github.com/cjeanneret/PhotoGo/internal/hw/gpio"
	"github.com/cjeanneret/PhotoGo/internal/hw/touch"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// Screen size used without a framebuffer (official Pi touch display).
const (
	mockWidth  = 1024
	mockHeight = 600
)

type hardware struct {
	display display.Display
	input   touch.Source
	camera  camera.Camera
	gpio    gpio.Driver // nil without a flash pin
}

// openHardware opens every device the loop needs. Display and input
// failures are startup faults; a missing flash only disables the lamp.
func openHardware(cfg *config.Config, mock bool, q *events.Queue, stdin io.Reader, log *logsink.Sink) (*hardware, error) {
	hw := &hardware{}

	if mock {
		log.Info("Using MOCK hardware (development mode)")
		hw.display = display.NewMemory(mockWidth, mockHeight)
		hw.input = touch.NewLines(stdin, mockWidth, mockHeight, q, log)
		hw.camera = camera.NewMock()
	} else {
		disp, err := display.OpenFramebuffer(cfg.DisplayDevice)
		if err != nil {
			return nil, fmt.Errorf("open display: %w", err)
		}
		w, h := disp.Size()
		log.Info("Display: %s %dx%d", cfg.DisplayDevice, w, h)
		if fb, ok := disp.(interface{ Paged() bool }); ok && !fb.Paged() {
			log.Warn("Display: no room for a second page, frames are drawn in place")
		}

		in, err := touch.OpenEvdev(cfg.TouchDevice, w, h, q, log)
		if err != nil {
			disp.Close()
			return nil, fmt.Errorf("open input: %w", err)
		}
		hw.display = disp
		hw.input = in
		still := camera.NewLibcameraStill(cfg.Camera.Command, log)
		still.Tuning = tuningFrom(cfg.Camera)
		hw.camera = still
	}

	if pin := cfg.Camera.FlashPin; pin > 0 {
		drv, err := gpio.NewDriver(mock, log)
		if err != nil {
			log.Warn("Flash: %v, continuing without flash", err)
		} else {
			hw.gpio = drv
			hw.camera = camera.WithFlash(hw.camera, drv, pin, log)
			log.Info("Flash: GPIO pin %d", pin)
		}
	}
	return hw, nil
}

func tuningFrom(c config.CameraConfig) camera.Tuning {
	return camera.Tuning{
		Metering:   c.Metering,
		EV:         c.EV,
		AWB:        c.AWB,
		Brightness: c.Brightness,
		Contrast:   c.Contrast,
		Saturation: c.Saturation,
		Sharpness:  c.Sharpness,
		Framerate:  c.Framerate,
	}
}

// imageDir picks where captures are written. With usbStorage set, the
// first removable drive wins; without one the configured ImagePath is
// used so the booth keeps working.
func imageDir(cfg *config.Config, find func() (archive.Drive, error), log *logsink.Sink) string {
	if !cfg.USBStorage {
		return cfg.ImagePath
	}
	drive, err := find()
	if err != nil {
		log.Warn("Archive: %v, saving to %s instead", err, cfg.ImagePath)
		return cfg.ImagePath
	}
	log.Info("Archive: saving to removable drive %s (%s)", drive.MountPoint, drive.Device)
	return drive.MountPoint
}

// Close stops input first so nothing is queued while devices go away.
func (hw *hardware) Close(log *logsink.Sink) {
	if err := hw.input.Close(); err != nil {
		log.Warn("Input: close: %v", err)
	}
	if err := hw.display.Close(); err != nil {
		log.Warn("Display: close: %v", err)
	}
	if hw.gpio != nil {
		if err := hw.gpio.Close(); err != nil {
			log.Warn("GPIO: close: %v", err)
		}
	}
}
