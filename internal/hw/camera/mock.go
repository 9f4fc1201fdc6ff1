package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"sync"
)

// Mock writes a generated gradient JPEG instead of talking to a camera.
// Fail makes the next n captures return a *CaptureError.
type Mock struct {
	mu       sync.Mutex
	captures []Request
	failNext int
}

func NewMock() *Mock { return &Mock{} }

// ErrMockFailure is wrapped by captures failed through Fail.
var ErrMockFailure = errors.New("mock camera failure")

func (m *Mock) Fail(n int) {
	m.mu.Lock()
	m.failNext = n
	m.mu.Unlock()
}

// Captures returns the requests seen so far.
func (m *Mock) Captures() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.captures...)
}

func (m *Mock) Capture(ctx context.Context, req Request) error {
	m.mu.Lock()
	m.captures = append(m.captures, req)
	fail := m.failNext > 0
	if fail {
		m.failNext--
	}
	m.mu.Unlock()

	if fail {
		return &CaptureError{Path: req.Path, Err: ErrMockFailure}
	}
	if err := ctx.Err(); err != nil {
		return &CaptureError{Path: req.Path, Err: err}
	}
	if err := writeGradient(req.Path, req.Width, req.Height); err != nil {
		return &CaptureError{Path: req.Path, Err: err}
	}
	return nil
}

func writeGradient(path string, w, h int) error {
	if w <= 0 || h <= 0 {
		w, h = 640, 360
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 0x80, A: 0xFF})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
