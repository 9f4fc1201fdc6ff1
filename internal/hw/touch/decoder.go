package touch

import (
	"encoding/binary"
	"unsafe"

	"github.com/cjeanneret/PhotoGo/internal/events"
)

// Linux input event constants (linux/input-event-codes.h).
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00
	btnTouch  = 0x14a

	absX           = 0x00
	absY           = 0x01
	absMTPositionX = 0x35
	absMTPositionY = 0x36
)

// timevalSize is the kernel's struct timeval for this architecture: two
// longs, 16 bytes on arm64 and amd64, 8 bytes on 32-bit ARM.
const timevalSize = 2 * int(unsafe.Sizeof(uintptr(0)))

// RecordSize is sizeof(struct input_event): a timeval followed by type,
// code and value.
const RecordSize = timevalSize + 8

// Raw is one decoded input_event without its timestamp.
type Raw struct {
	Type  uint16
	Code  uint16
	Value int32
}

// DecodeRecord reads a little-endian input_event from b, which must hold
// at least RecordSize bytes.
func DecodeRecord(b []byte) Raw {
	return Raw{
		Type:  binary.LittleEndian.Uint16(b[timevalSize:]),
		Code:  binary.LittleEndian.Uint16(b[timevalSize+2:]),
		Value: int32(binary.LittleEndian.Uint32(b[timevalSize+4:])),
	}
}

// AbsRange is the reported range of an absolute axis.
type AbsRange struct {
	Min int32
	Max int32
}

// Scale maps v from the axis range to [0, size).
func (r AbsRange) Scale(v int32, size int) int {
	if r.Max <= r.Min || size <= 0 {
		return int(v)
	}
	if v < r.Min {
		v = r.Min
	}
	if v > r.Max {
		v = r.Max
	}
	return int(int64(v-r.Min) * int64(size-1) / int64(r.Max-r.Min))
}

// Decoder turns a stream of Raw records into pointer events. A touch
// transition is reported on the SYN_REPORT that closes its frame, so the
// position written in the same frame is already known.
type Decoder struct {
	X, Y          AbsRange
	Width, Height int

	x, y    int32
	pending bool
	kind    events.Kind
}

// Feed consumes one record and returns an event when a frame completes a
// touch transition.
func (d *Decoder) Feed(r Raw) (events.Event, bool) {
	switch r.Type {
	case evAbs:
		switch r.Code {
		case absX, absMTPositionX:
			d.x = r.Value
		case absY, absMTPositionY:
			d.y = r.Value
		}
	case evKey:
		if r.Code != btnTouch {
			break
		}
		switch r.Value {
		case 1:
			d.pending, d.kind = true, events.PointerDown
		case 0:
			d.pending, d.kind = true, events.PointerUp
		}
	case evSyn:
		if r.Code == synReport && d.pending {
			d.pending = false
			pos := events.Position{X: d.X.Scale(d.x, d.Width), Y: d.Y.Scale(d.y, d.Height)}
			return events.Event{Kind: d.kind, Pos: pos}, true
		}
	}
	return events.Event{}, false
}
