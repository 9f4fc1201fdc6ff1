package touch

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/PhotoGo/internal/events"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

func record(typ, code uint16, value int32) []byte {
	b := make([]byte, RecordSize)
	for i := 0; i < timevalSize; i++ {
		b[i] = 0xAB
	}
	binary.LittleEndian.PutUint16(b[timevalSize:], typ)
	binary.LittleEndian.PutUint16(b[timevalSize+2:], code)
	binary.LittleEndian.PutUint32(b[timevalSize+4:], uint32(value))
	return b
}

func feedAll(d *Decoder, recs ...[]byte) []events.Event {
	var out []events.Event
	for _, r := range recs {
		if ev, ok := d.Feed(DecodeRecord(r)); ok {
			out = append(out, ev)
		}
	}
	return out
}

func TestDecodeRecord(t *testing.T) {
	r := DecodeRecord(record(evAbs, absY, -5))
	assert.Equal(t, Raw{Type: evAbs, Code: absY, Value: -5}, r)
}

func TestRecordSize_FollowsWordSize(t *testing.T) {
	word := int(unsafe.Sizeof(uintptr(0)))
	assert.Equal(t, 2*word+8, RecordSize)
	if word == 4 {
		assert.Equal(t, 16, RecordSize)
	} else {
		assert.Equal(t, 24, RecordSize)
	}
}

func TestDecodeRecord_BackToBackRecords(t *testing.T) {
	stream := append(record(evKey, btnTouch, 1), record(evSyn, synReport, 0)...)
	require.Len(t, stream, 2*RecordSize)

	assert.Equal(t, Raw{Type: evKey, Code: btnTouch, Value: 1}, DecodeRecord(stream))
	assert.Equal(t, Raw{Type: evSyn, Code: synReport}, DecodeRecord(stream[RecordSize:]))
}

func TestDecoder_TapScaledToDisplay(t *testing.T) {
	d := &Decoder{
		X: AbsRange{Min: 0, Max: 4095}, Y: AbsRange{Min: 0, Max: 4095},
		Width: 1024, Height: 600,
	}

	got := feedAll(d,
		record(evKey, btnTouch, 1),
		record(evAbs, absX, 4095),
		record(evAbs, absY, 0),
		record(evSyn, synReport, 0),
		record(evAbs, absX, 2048),
		record(evSyn, synReport, 0),
		record(evKey, btnTouch, 0),
		record(evSyn, synReport, 0),
	)

	require.Len(t, got, 2)
	assert.Equal(t, events.Down(1023, 0), got[0])
	assert.Equal(t, events.PointerUp, got[1].Kind)
	assert.Equal(t, 511, got[1].Pos.X)
}

func TestDecoder_MultiTouchAxes(t *testing.T) {
	d := &Decoder{Width: 100, Height: 100}
	got := feedAll(d,
		record(evAbs, absMTPositionX, 40),
		record(evAbs, absMTPositionY, 60),
		record(evKey, btnTouch, 1),
		record(evSyn, synReport, 0),
	)
	require.Len(t, got, 1)
	// Without a range, raw values pass through.
	assert.Equal(t, events.Down(40, 60), got[0])
}

func TestDecoder_IgnoresOtherKeysAndRepeats(t *testing.T) {
	d := &Decoder{}
	got := feedAll(d,
		record(evKey, 0x110, 1), // BTN_LEFT
		record(evKey, btnTouch, 2),
		record(evSyn, synReport, 0),
	)
	assert.Empty(t, got)
}

func TestAbsRange_ScaleClamps(t *testing.T) {
	r := AbsRange{Min: 100, Max: 200}
	assert.Equal(t, 0, r.Scale(50, 11))
	assert.Equal(t, 5, r.Scale(150, 11))
	assert.Equal(t, 10, r.Scale(900, 11))
}

func TestLines_TapsPerLine(t *testing.T) {
	q := events.NewQueue()
	l := NewLines(strings.NewReader("\n10 20\nnot a point\n"), 200, 100, q, logsink.Discard())
	l.Start()

	var got []events.Event
	require.Eventually(t, func() bool {
		got = append(got, q.Drain()...)
		return len(got) == 6
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []events.Event{
		events.Down(100, 50), events.Up(100, 50),
		events.Down(10, 20), events.Up(10, 20),
		events.Down(100, 50), events.Up(100, 50),
	}, got)
	assert.NoError(t, l.Close())
}

func TestLines_ImplementsSource(t *testing.T) {
	var _ Source = &Lines{}
	var _ Source = &Evdev{}
}
