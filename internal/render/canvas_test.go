package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/PhotoGo/internal/hw/display"
)

const (
	bg = 0xFF32A8A8
	fg = 0xFFFFFFFF
)

func countColor(f *display.Frame, argb uint32, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if f.PixelARGB(x, y) == argb {
				n++
			}
		}
	}
	return n
}

func writeJPEG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	path := filepath.Join(t.TempDir(), "image1.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
	return path
}

func TestClear_FillsBackBuffer(t *testing.T) {
	d := display.NewMemory(20, 10)
	c := New(d, fg)

	c.Clear(bg)
	assert.Equal(t, 200, countColor(d.BackBuffer(), bg, d.BackBuffer().Bounds()))
}

func TestClear_FollowsBackBufferAcrossSwaps(t *testing.T) {
	d := display.NewMemory(4, 4)
	c := New(d, fg)

	c.Clear(bg)
	require.NoError(t, d.Swap())
	c.Clear(0xFF000001)

	assert.Equal(t, uint32(bg), d.Front().PixelARGB(0, 0))
	assert.Equal(t, uint32(0xFF000001), d.BackBuffer().PixelARGB(0, 0))
}

// inkBounds returns the smallest rectangle holding every pixel that is
// not the background, antialiased edges included.
func inkBounds(f *display.Frame) image.Rectangle {
	var r image.Rectangle
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if f.PixelARGB(x, y) != bg {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func drawn(w, h int, msg string, size float64) *display.Frame {
	d := display.NewMemory(w, h)
	c := New(d, fg)
	c.Clear(bg)
	c.DrawText(msg, size)
	return d.BackBuffer()
}

func TestDrawText_CentredGlyphs(t *testing.T) {
	frame := drawn(200, 100, "HI", 26)

	assert.Greater(t, countColor(frame, fg, frame.Bounds()), 0, "solid glyph pixels drawn")
	ink := inkBounds(frame)
	require.False(t, ink.Empty())
	assert.InDelta(t, ink.Min.X, 200-ink.Max.X, 3, "horizontally centred: %v", ink)
	assert.InDelta(t, ink.Min.Y, 100-ink.Max.Y, 10, "vertically centred: %v", ink)
	assert.Less(t, ink.Dy(), 26)
}

func TestDrawText_SizeScalesGlyphs(t *testing.T) {
	small := inkBounds(drawn(400, 200, "H", 20))
	large := inkBounds(drawn(400, 200, "H", 80))

	assert.InDelta(t, 4.0, float64(large.Dy())/float64(small.Dy()), 0.5)
}

func TestDrawText_MultiLineStacksLines(t *testing.T) {
	one := inkBounds(drawn(200, 200, "A", 26))
	two := inkBounds(drawn(200, 200, "A\nA", 26))

	assert.Greater(t, two.Dy(), 2*one.Dy(), "second line sits below the first")
	assert.InDelta(t, two.Min.Y, 200-two.Max.Y, 10, "block centred: %v", two)
}

func TestDrawText_LiteralBackslashNIsNotSplit(t *testing.T) {
	// An already-decoded message is drawn as-is: `\n` here is two glyphs.
	literal := inkBounds(drawn(400, 100, `A\nB`, 20))
	split := inkBounds(drawn(400, 100, "A\nB", 20))

	assert.Greater(t, literal.Dx(), split.Dx(), "four glyphs on one line")
	assert.Greater(t, split.Dy(), literal.Dy())
}

func TestDrawText_WideLineShrinksToFit(t *testing.T) {
	frame := drawn(50, 50, "a very long sentence", 100)

	ink := inkBounds(frame)
	require.False(t, ink.Empty())
	assert.LessOrEqual(t, ink.Dx(), 49)
	assert.GreaterOrEqual(t, ink.Min.X, 0)
}

func TestDrawText_MissingGlyphsAreSkipped(t *testing.T) {
	assert.True(t, inkBounds(drawn(100, 50, "😎", 26)).Empty(), "no replacement box")

	withEmoji := inkBounds(drawn(200, 50, "ok 😎", 26))
	plain := inkBounds(drawn(200, 50, "ok", 26))
	assert.Equal(t, plain, withEmoji)
}

func TestDrawText_EmptyOrZeroSizeDrawsNothing(t *testing.T) {
	assert.True(t, inkBounds(drawn(20, 20, "", 20)).Empty())
	assert.True(t, inkBounds(drawn(20, 20, "x", 0)).Empty())
}

func TestDrawImage_ScaledToFit(t *testing.T) {
	d := display.NewMemory(100, 100)
	c := New(d, fg)
	c.Clear(bg)

	path := writeJPEG(t, 40, 20, color.RGBA{R: 250, A: 255})
	require.NoError(t, c.DrawImage(path))

	frame := d.BackBuffer()
	px := frame.At(50, 50).(color.RGBA)
	assert.Greater(t, px.R, uint8(200))
	assert.Less(t, px.G, uint8(60))

	// Letterbox bands keep the background.
	assert.Equal(t, uint32(bg), frame.PixelARGB(50, 5))
	assert.Equal(t, uint32(bg), frame.PixelARGB(50, 95))
}

func TestDrawImage_MissingFile(t *testing.T) {
	c := New(display.NewMemory(10, 10), fg)
	assert.Error(t, c.DrawImage(filepath.Join(t.TempDir(), "nope.jpg")))
}

func TestDrawImage_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg"), 0o644))

	c := New(display.NewMemory(10, 10), fg)
	assert.Error(t, c.DrawImage(path))
}

func TestFitRect(t *testing.T) {
	cases := []struct {
		name     string
		src, dst image.Point
		want     image.Rectangle
	}{
		{"wide into square", image.Pt(40, 20), image.Pt(100, 100), image.Rect(0, 25, 100, 75)},
		{"tall into square", image.Pt(20, 40), image.Pt(100, 100), image.Rect(25, 0, 75, 100)},
		{"1080p into 1024x600", image.Pt(1920, 1080), image.Pt(1024, 600), image.Rect(0, 12, 1024, 588)},
		{"same size", image.Pt(10, 10), image.Pt(10, 10), image.Rect(0, 0, 10, 10)},
		{"empty source", image.Pt(0, 10), image.Pt(10, 10), image.Rectangle{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FitRect(tc.src, tc.dst))
		})
	}
}
