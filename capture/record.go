package capture

import (
	"github.com/BurntSushi/xgb/xproto"

	"keytap/keyevent"
)

// XRecordInterceptData categories (X11/extensions/record.h).
const (
	recordFromServer  = 0
	recordFromClient  = 1
	recordStartOfData = 4
	recordEndOfData   = 5
)

// A device event arrives in
// XRecordInterceptData.data: a 32-byte core protocol event in the recording
// client's byte order (little-endian on every platform keytap builds for).
//
//	offset  width  field
//	0       1      event code (bit 7 set for SendEvent)
//	1       1      detail (keycode)
//	2       2      sequence number
//	4       4      time
//	8..27          root, event, child, root-x/y, event-x/y
//	28      2      state (KEYBUTMASK)
//	30      1      same-screen
//	31      1      unused
//
// Decoding is delegated to xproto so the offsets live in one place.
const (
	recordEventSize = 32
	sendEventMask   = 0x80
)

// DecodeRecord classifies one intercepted RECORD payload. It reports false
// for anything that is not a server-originated KeyPress or KeyRelease,
// including nil or truncated data.
func DecodeRecord(category int, data []byte) (keyevent.Event, bool) {
	if category != recordFromServer || len(data) < recordEventSize {
		return keyevent.Event{}, false
	}

	var (
		dir   keyevent.Direction
		press xproto.KeyPressEvent
	)
	switch data[0] &^ sendEventMask {
	case xproto.KeyPress:
		dir = keyevent.KeyDown
		press = xproto.KeyPressEventNew(data).(xproto.KeyPressEvent)
	case xproto.KeyRelease:
		dir = keyevent.KeyUp
		press = xproto.KeyPressEvent(xproto.KeyReleaseEventNew(data).(xproto.KeyReleaseEvent))
	default:
		return keyevent.Event{}, false
	}

	return keyevent.Event{
		Direction: dir,
		Keycode:   uint32(press.Detail),
		Modifiers: stateModifiers(press.State),
	}, true
}

func stateModifiers(state uint16) keyevent.Modifiers {
	return keyevent.Modifiers{
		Shift: state&xproto.ModMaskShift != 0,
		Ctrl:  state&xproto.ModMaskControl != 0,
		Alt:   state&xproto.ModMask1 != 0,
	}
}
