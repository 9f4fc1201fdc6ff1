package events

import "fmt"

// Kind tells whether the pointer went down or up.
type Kind int

const (
	PointerDown Kind = iota
	PointerUp
)

func (k Kind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerUp:
		return "up"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Position is a point in display pixel space.
type Position struct {
	X int
	Y int
}

// Event is a single touch transition reported by an input source.
type Event struct {
	Kind Kind
	Pos  Position
}

// Down builds a PointerDown event at (x, y).
func Down(x, y int) Event {
	return Event{Kind: PointerDown, Pos: Position{X: x, Y: y}}
}

// Up builds a PointerUp event at (x, y).
func Up(x, y int) Event {
	return Event{Kind: PointerUp, Pos: Position{X: x, Y: y}}
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d,%d)", e.Kind, e.Pos.X, e.Pos.Y)
}

// HasPointerDown reports whether any event in the batch is a PointerDown.
func HasPointerDown(batch []Event) bool {
	for _, e := range batch {
		if e.Kind == PointerDown {
			return true
		}
	}
	return false
}
