package display

import (
	"image"
	"image/color"
)

// Frame is an XRGB8888 little-endian pixel buffer (bytes B, G, R, X), the
// layout of a 32bpp Linux framebuffer. It implements draw.Image so the
// standard image packages can paint into it.
type Frame struct {
	Pix    []byte
	Stride int // bytes per row
	Width  int
	Height int
}

// NewFrame allocates a frame in ordinary memory.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Pix:    make([]byte, width*height*4),
		Stride: width * 4,
		Width:  width,
		Height: height,
	}
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f *Frame) offset(x, y int) int { return y*f.Stride + x*4 }

func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	i := f.offset(x, y)
	return color.RGBA{R: f.Pix[i+2], G: f.Pix[i+1], B: f.Pix[i], A: 0xFF}
}

// Set stores c, ignoring alpha: the screen has no transparency.
func (f *Frame) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	r, g, b, _ := c.RGBA()
	i := f.offset(x, y)
	f.Pix[i] = uint8(b >> 8)
	f.Pix[i+1] = uint8(g >> 8)
	f.Pix[i+2] = uint8(r >> 8)
	f.Pix[i+3] = 0xFF
}

// Fill paints every pixel with a packed ARGB value.
func (f *Frame) Fill(argb uint32) {
	if f.Width == 0 || f.Height == 0 {
		return
	}
	b, g, r := byte(argb), byte(argb>>8), byte(argb>>16)
	row := f.Pix[:f.Width*4]
	for x := 0; x < f.Width; x++ {
		row[x*4] = b
		row[x*4+1] = g
		row[x*4+2] = r
		row[x*4+3] = 0xFF
	}
	for y := 1; y < f.Height; y++ {
		copy(f.Pix[f.offset(0, y):f.offset(0, y)+f.Width*4], row)
	}
}

// PixelARGB returns the packed value at (x, y) with alpha forced opaque.
func (f *Frame) PixelARGB(x, y int) uint32 {
	i := f.offset(x, y)
	return 0xFF000000 | uint32(f.Pix[i+2])<<16 | uint32(f.Pix[i+1])<<8 | uint32(f.Pix[i])
}

// Blit copies src onto the frame with its top-left corner at p, clipped to
// the frame. Alpha is ignored.
func (f *Frame) Blit(src *image.RGBA, p image.Point) {
	sb := src.Bounds()
	dst := image.Rectangle{Min: p, Max: p.Add(sb.Size())}.Intersect(f.Bounds())
	if dst.Empty() {
		return
	}
	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		sy := sb.Min.Y + y - p.Y
		si := src.PixOffset(sb.Min.X+dst.Min.X-p.X, sy)
		di := f.offset(dst.Min.X, y)
		for x := dst.Min.X; x < dst.Max.X; x++ {
			f.Pix[di] = src.Pix[si+2]
			f.Pix[di+1] = src.Pix[si+1]
			f.Pix[di+2] = src.Pix[si]
			f.Pix[di+3] = 0xFF
			si += 4
			di += 4
		}
	}
}
