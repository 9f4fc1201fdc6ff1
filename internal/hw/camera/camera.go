package camera

import (
	"context"
	"fmt"
	"time"
)

// Camera is the high-level interface used by the rest of the application.
// It represents an abstract still camera, regardless of how it's driven
// (subprocess, GPIO trigger, mock). Capture blocks until the image file
// exists or the request failed.
type Camera interface {
	Capture(ctx context.Context, req Request) error
}

// Request describes one still capture.
type Request struct {
	Path    string        // destination JPEG
	Width   int           // pixels, 0 = camera default
	Height  int           // pixels, 0 = camera default
	Timeout time.Duration // preview time before the shot
}

// CaptureError reports a failed or timed out capture.
type CaptureError struct {
	Path string
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Path, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
