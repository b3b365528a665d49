package capture

import "keytap/keyevent"

// Win32 values used by the low-level keyboard hook (winuser.h).
const (
	hcAction = 0

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
)

// HookPayload mirrors KBDLLHOOKSTRUCT. The field layout must match the
// Win32 struct because the hook receives a pointer to it in lParam.
type HookPayload struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// ModifierReader reports whether a virtual key is held right now.
type ModifierReader interface {
	KeyDown(vk uint32) bool
}

// HeldKeys is a fixed ModifierReader, mostly useful in tests and replays.
type HeldKeys map[uint32]bool

func (h HeldKeys) KeyDown(vk uint32) bool { return h[vk] }

// DecodeHook classifies one low-level hook invocation. System key variants
// (WM_SYSKEYDOWN/UP, sent while Alt is held) count as ordinary key
// transitions. Modifier state is sampled from mr at call time; a nil mr
// reports no modifiers.
func DecodeHook(nCode int32, wParam uintptr, p *HookPayload, mr ModifierReader) (keyevent.Event, bool) {
	if nCode != hcAction || p == nil {
		return keyevent.Event{}, false
	}

	var dir keyevent.Direction
	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		dir = keyevent.KeyDown
	case wmKeyUp, wmSysKeyUp:
		dir = keyevent.KeyUp
	default:
		return keyevent.Event{}, false
	}

	ev := keyevent.Event{Direction: dir, Keycode: p.VkCode}
	if mr != nil {
		ev.Modifiers = keyevent.Modifiers{
			Shift: mr.KeyDown(vkShift),
			Ctrl:  mr.KeyDown(vkControl),
			Alt:   mr.KeyDown(vkMenu),
		}
	}
	return ev, true
}
