// Package capture subscribes to system-wide keyboard transitions and turns
// each platform's raw payload into a keyevent.Event.
//
// Two backends exist: the X RECORD extension on Linux and a WH_KEYBOARD_LL
// hook on Windows. Both deliver events synchronously on the thread that
// called Run, in the order the OS produced them.
package capture

import (
	"errors"

	"keytap/keyevent"
)

var (
	ErrDisplayUnavailable  = errors.New("display unavailable")
	ErrRecordUnsupported   = errors.New("RECORD extension unavailable")
	ErrContextCreate       = errors.New("cannot create record context")
	ErrHookInstall         = errors.New("cannot install keyboard hook")
	ErrUnsupportedPlatform = errors.New("keyboard capture not supported on this platform")
)

// Handler receives every accepted key transition. It runs on the capture
// thread and must return before the next event is dispatched.
type Handler func(keyevent.Event)

// Source is a keyboard event source.
type Source interface {
	Name() string

	// Run acquires the capture resources and blocks dispatching events to h
	// until Stop is called or setup fails. Resources are released before Run
	// returns.
	Run(h Handler) error

	// Stop makes a running Run return. It may be called from any goroutine,
	// before Run, or more than once.
	Stop() error
}
