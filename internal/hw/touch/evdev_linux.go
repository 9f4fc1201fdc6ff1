//go:build linux

package touch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cjeanneret/PhotoGo/internal/events"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// struct input_absinfo
type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// _IOR('E', 0x40 + abs, struct input_absinfo)
func eviocgabs(abs uint) uintptr {
	return uintptr(2<<30 | uint(unsafe.Sizeof(absInfo{}))<<16 | 'E'<<8 | (0x40 + abs))
}

// Evdev reads a Linux touchscreen event device.
type Evdev struct {
	file    *os.File
	queue   *events.Queue
	log     *logsink.Sink
	decoder Decoder

	running atomic.Bool
	done    chan struct{}
}

// OpenEvdev opens the device at path and reads its axis ranges so that
// positions can be scaled to a width x height display.
func OpenEvdev(path string, width, height int, q *events.Queue, log *logsink.Sink) (*Evdev, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device: %w", err)
	}

	d := Decoder{Width: width, Height: height}
	d.X, err = readAbs(f, absX, absMTPositionX)
	if err == nil {
		d.Y, err = readAbs(f, absY, absMTPositionY)
	}
	if err != nil {
		// Not fatal: raw coordinates are passed through unscaled.
		log.Warn("Input: %s has no absolute axes (%v), positions unscaled", path, err)
	}
	log.Verbose("Input: %s x=[%d,%d] y=[%d,%d]", path, d.X.Min, d.X.Max, d.Y.Min, d.Y.Max)

	return &Evdev{
		file:    f,
		queue:   q,
		log:     log,
		decoder: d,
		done:    make(chan struct{}),
	}, nil
}

func readAbs(f *os.File, codes ...uint) (AbsRange, error) {
	conn, err := f.SyscallConn()
	if err != nil {
		return AbsRange{}, err
	}
	var lastErr error
	for _, code := range codes {
		var info absInfo
		ctlErr := conn.Control(func(fd uintptr) {
			_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, eviocgabs(code), uintptr(unsafe.Pointer(&info)))
			if errno != 0 {
				lastErr = errno
				return
			}
			lastErr = nil
		})
		if ctlErr != nil {
			return AbsRange{}, ctlErr
		}
		if lastErr == nil && info.Maximum > info.Minimum {
			return AbsRange{Min: info.Minimum, Max: info.Maximum}, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("empty axis range")
	}
	return AbsRange{}, lastErr
}

// Start launches the read loop.
func (e *Evdev) Start() {
	e.running.Store(true)
	go e.run()
}

func (e *Evdev) run() {
	defer close(e.done)
	buf := make([]byte, RecordSize*64)
	for e.running.Load() {
		n, err := e.file.Read(buf)
		if err != nil {
			if e.running.Load() && !errors.Is(err, os.ErrClosed) && err != io.EOF {
				e.log.Error("Input: read failed: %v", err)
			}
			return
		}
		for off := 0; off+RecordSize <= n; off += RecordSize {
			if ev, ok := e.decoder.Feed(DecodeRecord(buf[off:])); ok {
				e.queue.Append(ev)
			}
		}
	}
}

// Close clears the continue flag and closes the device, which unblocks a
// pending read. It waits for the read loop when it was started.
func (e *Evdev) Close() error {
	wasRunning := e.running.Swap(false)
	err := e.file.Close()
	if wasRunning {
		<-e.done
	}
	return err
}
