// Package keyevent defines the platform-neutral key transition record and
// its line encoding.
package keyevent

import "strconv"

type Direction int

const (
	KeyDown Direction = iota
	KeyUp
)

func (d Direction) String() string {
	if d == KeyUp {
		return "keyup"
	}
	return "keydown"
}

// Modifiers holds the held state of each tracked modifier at event time.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
}

// Event is one key transition. Keycode is the platform-native identifier
// (X keycode on Linux, virtual-key code on Windows) and is never remapped.
type Event struct {
	Direction Direction
	Keycode   uint32
	Modifiers Modifiers
}

// AppendJSON appends the event as a single-line JSON object with the fixed
// key order type, keycode, shift, ctrl, alt. No trailing newline.
func (e Event) AppendJSON(b []byte) []byte {
	b = append(b, `{"type":"`...)
	b = append(b, e.Direction.String()...)
	b = append(b, `","keycode":`...)
	b = strconv.AppendUint(b, uint64(e.Keycode), 10)
	b = append(b, `,"shift":`...)
	b = strconv.AppendBool(b, e.Modifiers.Shift)
	b = append(b, `,"ctrl":`...)
	b = strconv.AppendBool(b, e.Modifiers.Ctrl)
	b = append(b, `,"alt":`...)
	b = strconv.AppendBool(b, e.Modifiers.Alt)
	return append(b, '}')
}

func (e Event) MarshalJSON() ([]byte, error) {
	return e.AppendJSON(make([]byte, 0, 80)), nil
}
