package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // captures are JPEG
	_ "image/png"
	"math"
	"os"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/cjeanneret/PhotoGo/internal/hw/display"
)

// Target is where the canvas paints: the display's current back buffer,
// fetched again on every call because it changes after each swap.
type Target interface {
	BackBuffer() *display.Frame
}

var goRegular = mustParse(goregular.TTF)

func mustParse(ttf []byte) *opentype.Font {
	f, err := opentype.Parse(ttf)
	if err != nil {
		panic(fmt.Sprintf("render: embedded font: %v", err))
	}
	return f
}

// Canvas draws the booth screens with antialiased Go Regular text. It is
// used from the loop goroutine only.
type Canvas struct {
	target Target
	fg     color.RGBA
	font   *opentype.Font
	faces  map[float64]font.Face
	buf    sfnt.Buffer
}

// New creates a canvas drawing text in the packed ARGB color fg.
func New(t Target, fg uint32) *Canvas {
	return &Canvas{
		target: t,
		fg:     argb(fg),
		font:   goRegular,
		faces:  make(map[float64]font.Face),
	}
}

func argb(c uint32) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
}

// Clear fills the back buffer with a packed ARGB color.
func (c *Canvas) Clear(bg uint32) {
	c.target.BackBuffer().Fill(bg)
}

// face returns the face for a pixel size, building it on first use.
func (c *Canvas) face(size float64) font.Face {
	if f, ok := c.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil
	}
	c.faces[size] = f
	return f
}

// drawable drops runes the font has no glyph for, such as emoji, instead
// of drawing a replacement box.
func (c *Canvas) drawable(line string) string {
	return strings.Map(func(r rune) rune {
		if idx, err := c.font.GlyphIndex(&c.buf, r); err != nil || idx == 0 {
			return -1
		}
		return r
	}, line)
}

func widest(face font.Face, lines []string) fixed.Int26_6 {
	var w fixed.Int26_6
	for _, l := range lines {
		if lw := font.MeasureString(face, l); lw > w {
			w = lw
		}
	}
	return w
}

// DrawText renders msg centred on screen. Lines are split on '\n'; size is
// the font size in pixels. Lines wider than the screen shrink the whole
// block to fit.
func (c *Canvas) DrawText(msg string, size float64) {
	if size <= 0 || msg == "" {
		return
	}
	frame := c.target.BackBuffer()
	lines := strings.Split(msg, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(c.drawable(l))
	}

	face := c.face(size)
	if face == nil {
		return
	}
	w := widest(face, lines)
	if w == 0 {
		return
	}
	if maxW := fixed.I(frame.Width * 95 / 100); w > maxW {
		size *= float64(maxW) / float64(w)
		if face = c.face(size); face == nil {
			return
		}
	}

	m := face.Metrics()
	lineH := m.Height.Ceil()
	if lineH < 1 {
		return
	}
	top := (frame.Height - lineH*len(lines)) / 2
	d := font.Drawer{Dst: frame, Src: image.NewUniform(c.fg), Face: face}
	for i, l := range lines {
		if l == "" {
			continue
		}
		d.Dot = fixed.Point26_6{
			X: (fixed.I(frame.Width) - font.MeasureString(face, l)) / 2,
			Y: fixed.I(top+i*lineH) + m.Ascent,
		}
		d.DrawString(l)
	}
}

// DrawImage decodes the image at path and draws it scaled to fit the
// screen, centred, keeping its aspect ratio. Uncovered areas keep whatever
// the back buffer held.
func (c *Canvas) DrawImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	frame := c.target.BackBuffer()
	fit := FitRect(src.Bounds().Size(), image.Pt(frame.Width, frame.Height))
	if fit.Empty() {
		return fmt.Errorf("image %s has no pixels", path)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, fit.Dx(), fit.Dy()))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
	frame.Blit(scaled, fit.Min)
	return nil
}

// FitRect returns the largest rectangle with src's aspect ratio that fits
// in a box of size dst, centred in it.
func FitRect(src, dst image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || dst.X <= 0 || dst.Y <= 0 {
		return image.Rectangle{}
	}
	scale := math.Min(float64(dst.X)/float64(src.X), float64(dst.Y)/float64(src.Y))
	w := int(math.Round(float64(src.X) * scale))
	h := int(math.Round(float64(src.Y) * scale))
	x := (dst.X - w) / 2
	y := (dst.Y - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
