package touch

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cjeanneret/PhotoGo/internal/events"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
)

// Lines simulates a touchscreen from text input, one tap per line. A line
// "x y" taps at that position, anything else taps the screen centre. Used
// with stdin when running without hardware.
type Lines struct {
	r      io.Reader
	queue  *events.Queue
	log    *logsink.Sink
	centre events.Position

	running atomic.Bool
}

func NewLines(r io.Reader, width, height int, q *events.Queue, log *logsink.Sink) *Lines {
	return &Lines{
		r:      r,
		queue:  q,
		log:    log,
		centre: events.Position{X: width / 2, Y: height / 2},
	}
}

func (l *Lines) Start() {
	l.running.Store(true)
	go l.run()
}

func (l *Lines) run() {
	sc := bufio.NewScanner(l.r)
	for sc.Scan() {
		if !l.running.Load() {
			return
		}
		pos := l.parse(sc.Text())
		l.log.Verbose("Input: simulated tap at (%d,%d)", pos.X, pos.Y)
		l.queue.Append(events.Down(pos.X, pos.Y))
		l.queue.Append(events.Up(pos.X, pos.Y))
	}
	if err := sc.Err(); err != nil {
		l.log.Warn("Input: simulator read failed: %v", err)
		return
	}
	if l.running.Load() {
		l.log.Info("Input: simulator reached end of input, no more taps")
	}
}

func (l *Lines) parse(line string) events.Position {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return l.centre
	}
	x, errX := strconv.Atoi(fields[0])
	y, errY := strconv.Atoi(fields[1])
	if errX != nil || errY != nil {
		return l.centre
	}
	return events.Position{X: x, Y: y}
}

// Close stops producing events. The underlying reader is not closed; a
// read already blocked on stdin ends with the process.
func (l *Lines) Close() error {
	l.running.Store(false)
	return nil
}
