//go:build linux

package display

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linux/fb.h
const (
	fbioGetVScreenInfo = 0x4600
	fbioPutVScreenInfo = 0x4601
	fbioGetFScreenInfo = 0x4602
	fbioPanDisplay     = 0x4606
)

type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

type fbVarScreenInfo struct {
	XRes         uint32
	YRes         uint32
	XResVirtual  uint32
	YResVirtual  uint32
	XOffset      uint32
	YOffset      uint32
	BitsPerPixel uint32
	Grayscale    uint32
	Red          fbBitfield
	Green        fbBitfield
	Blue         fbBitfield
	Transp       fbBitfield
	Nonstd       uint32
	Activate     uint32
	Height       uint32
	Width        uint32
	AccelFlags   uint32
	Pixclock     uint32
	LeftMargin   uint32
	RightMargin  uint32
	UpperMargin  uint32
	LowerMargin  uint32
	HsyncLen     uint32
	VsyncLen     uint32
	Sync         uint32
	Vmode        uint32
	Rotate       uint32
	Colorspace   uint32
	Reserved     [4]uint32
}

type fbFixScreenInfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Framebuffer drives a Linux fbdev device (/dev/fb0). It doubles the
// virtual height to get two pages and flips between them by panning. When
// the driver refuses the larger virtual size it falls back to one page and
// Swap becomes a no-op (drawing is then visible immediately).
type Framebuffer struct {
	mu       sync.Mutex
	file     *os.File
	mem      []byte
	orig     fbVarScreenInfo
	vinfo    fbVarScreenInfo
	pages    [2]*Frame
	front    int
	paged    bool
	released bool
}

// OpenFramebuffer maps the framebuffer device at path. Only 32 bits per
// pixel modes are supported.
func OpenFramebuffer(path string) (Display, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open framebuffer: %w", err)
	}
	fd := f.Fd()

	var orig fbVarScreenInfo
	if err := ioctl(fd, fbioGetVScreenInfo, unsafe.Pointer(&orig)); err != nil {
		f.Close()
		return nil, fmt.Errorf("FBIOGET_VSCREENINFO: %w", err)
	}
	if orig.BitsPerPixel != 32 {
		f.Close()
		return nil, fmt.Errorf("framebuffer %s: %d bpp not supported, need 32", path, orig.BitsPerPixel)
	}

	vinfo := orig
	want := orig
	want.YResVirtual = orig.YRes * 2
	want.YOffset = 0
	paged := false
	if err := ioctl(fd, fbioPutVScreenInfo, unsafe.Pointer(&want)); err == nil {
		if err := ioctl(fd, fbioGetVScreenInfo, unsafe.Pointer(&vinfo)); err == nil {
			paged = vinfo.YResVirtual >= 2*vinfo.YRes
		}
	}

	var fix fbFixScreenInfo
	if err := ioctl(fd, fbioGetFScreenInfo, unsafe.Pointer(&fix)); err != nil {
		f.Close()
		return nil, fmt.Errorf("FBIOGET_FSCREENINFO: %w", err)
	}

	pageSize := int(fix.LineLength) * int(vinfo.YRes)
	pageCount := 1
	if paged {
		pageCount = 2
	}
	mem, err := unix.Mmap(int(fd), 0, pageSize*pageCount, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap framebuffer: %w", err)
	}

	fb := &Framebuffer{
		file:  f,
		mem:   mem,
		orig:  orig,
		vinfo: vinfo,
		paged: paged,
	}
	for i := 0; i < 2; i++ {
		page := i % pageCount
		fb.pages[i] = &Frame{
			Pix:    mem[page*pageSize : (page+1)*pageSize],
			Stride: int(fix.LineLength),
			Width:  int(vinfo.XRes),
			Height: int(vinfo.YRes),
		}
	}
	return fb, nil
}

// Paged reports whether real page flipping is available.
func (fb *Framebuffer) Paged() bool {
	return fb.paged
}

func (fb *Framebuffer) AcquireExclusive() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.released = false
	if !fb.paged {
		return nil
	}
	return fb.pan(fb.front)
}

func (fb *Framebuffer) ReleaseExclusive() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.released = true
	return nil
}

func (fb *Framebuffer) BackBuffer() *Frame {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.pages[1-fb.front]
}

func (fb *Framebuffer) Swap() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.released {
		return &SwapError{Err: ErrReleased}
	}
	if !fb.paged {
		return nil
	}
	back := 1 - fb.front
	if err := fb.pan(back); err != nil {
		return &SwapError{Err: err}
	}
	fb.front = back
	return nil
}

func (fb *Framebuffer) pan(page int) error {
	v := fb.vinfo
	v.XOffset = 0
	v.YOffset = uint32(page) * fb.vinfo.YRes
	if err := ioctl(fb.file.Fd(), fbioPanDisplay, unsafe.Pointer(&v)); err != nil {
		return fmt.Errorf("FBIOPAN_DISPLAY: %w", err)
	}
	return nil
}

func (fb *Framebuffer) Size() (int, int) {
	return int(fb.vinfo.XRes), int(fb.vinfo.YRes)
}

// Close unmaps the memory and restores the original mode.
func (fb *Framebuffer) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var firstErr error
	if err := unix.Munmap(fb.mem); err != nil {
		firstErr = fmt.Errorf("munmap framebuffer: %w", err)
	}
	orig := fb.orig
	if err := ioctl(fb.file.Fd(), fbioPutVScreenInfo, unsafe.Pointer(&orig)); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("restore screen info: %w", err)
	}
	if err := fb.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
