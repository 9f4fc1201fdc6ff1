package display

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_FillAndPixel(t *testing.T) {
	f := NewFrame(4, 3)
	f.Fill(0xFF32A8A8)

	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, uint32(0xFF32A8A8), f.PixelARGB(x, y), "pixel (%d,%d)", x, y)
		}
	}
	// XRGB little endian: B, G, R, X
	assert.Equal(t, []byte{0xA8, 0xA8, 0x32, 0xFF}, f.Pix[:4])
}

func TestFrame_FillIgnoresAlpha(t *testing.T) {
	f := NewFrame(1, 1)
	f.Fill(0x00CD5757)
	assert.Equal(t, uint32(0xFFCD5757), f.PixelARGB(0, 0))
}

func TestFrame_SetAtRoundTrip(t *testing.T) {
	f := NewFrame(2, 2)
	f.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, f.At(1, 1))

	// Out of bounds writes are ignored.
	f.Set(5, 5, color.White)
	assert.Equal(t, color.RGBA{}, f.At(5, 5))
}

func TestFrame_WithStridePadding(t *testing.T) {
	f := &Frame{Pix: make([]byte, 2*24), Stride: 24, Width: 3, Height: 2}
	f.Fill(0xFF010203)
	assert.Equal(t, uint32(0xFF010203), f.PixelARGB(2, 1))
	assert.Equal(t, byte(0), f.Pix[12], "padding bytes stay untouched")
}

func TestFrame_IsDrawImage(t *testing.T) {
	f := NewFrame(4, 4)
	var _ draw.Image = f
	draw.Draw(f, image.Rect(0, 0, 2, 2), image.NewUniform(color.RGBA{R: 255, A: 255}), image.Point{}, draw.Src)
	assert.Equal(t, uint32(0xFFFF0000), f.PixelARGB(0, 0))
	assert.Equal(t, uint32(0xFF000000), f.PixelARGB(3, 3))
}

func TestMemory_SwapFlipsBuffers(t *testing.T) {
	m := NewMemory(8, 6)
	w, h := m.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)

	back := m.BackBuffer()
	back.Fill(0xFF112233)
	require.NoError(t, m.Swap())

	assert.Same(t, back, m.Front())
	assert.NotSame(t, back, m.BackBuffer())
	assert.Equal(t, 1, m.Swaps())
}

func TestMemory_FailSwaps(t *testing.T) {
	m := NewMemory(2, 2)
	back := m.BackBuffer()
	m.FailSwaps(1)

	err := m.Swap()
	var swapErr *SwapError
	require.True(t, errors.As(err, &swapErr))
	assert.Same(t, back, m.BackBuffer(), "failed swap keeps the back buffer")
	assert.Equal(t, 1, m.SwapFailures())

	require.NoError(t, m.Swap())
	assert.Equal(t, 1, m.Swaps())
}

func TestMemory_ReleasedRefusesSwap(t *testing.T) {
	m := NewMemory(2, 2)
	require.NoError(t, m.ReleaseExclusive())
	assert.True(t, m.Released())
	assert.ErrorIs(t, m.Swap(), ErrReleased)

	require.NoError(t, m.AcquireExclusive())
	assert.NoError(t, m.Swap())
}

func TestFrame_BlitClips(t *testing.T) {
	f := NewFrame(4, 4)
	src := image.NewRGBA(image.Rect(0, 0, 3, 3))
	draw.Draw(src, src.Bounds(), image.NewUniform(color.RGBA{G: 200, A: 255}), image.Point{}, draw.Src)

	f.Blit(src, image.Pt(2, 2))

	assert.Equal(t, uint32(0xFF00C800), f.PixelARGB(2, 2))
	assert.Equal(t, uint32(0xFF00C800), f.PixelARGB(3, 3))
	assert.Equal(t, uint32(0xFF000000), f.PixelARGB(1, 1))

	// Entirely outside: no panic, nothing drawn.
	f.Blit(src, image.Pt(10, 10))
}
