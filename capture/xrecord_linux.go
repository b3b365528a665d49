//go:build linux && cgo

package capture

/*
#cgo LDFLAGS: -lX11 -lXtst
#include <stdint.h>
#include <X11/Xlib.h>
#include <X11/extensions/record.h>

void keytap_install_error_handler(void);
XRecordContext keytap_create_context(Display *dpy);
Status keytap_enable_context(Display *dpy, XRecordContext ctx, uintptr_t handle);
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"sync"
	"unsafe"

	"keytap/log"
)

// recordSource captures keys through the X RECORD extension.
//
// RECORD needs two connections: XRecordEnableContext blocks on the data
// connection for the whole capture, so setup and XRecordDisableContext go
// through the control connection.
type recordSource struct {
	mu    sync.Mutex
	ctrl  *C.Display
	data  *C.Display
	ctx   C.XRecordContext
	state stopState

	handler     Handler
	releaseOnce sync.Once
}

func New() Source {
	return &recordSource{}
}

func (s *recordSource) Name() string { return "xrecord" }

func (s *recordSource) Run(h Handler) error {
	if err := s.open(); err != nil {
		s.release()
		return err
	}
	defer s.release()

	s.handler = h
	handle := cgo.NewHandle(s)
	defer handle.Delete()

	s.mu.Lock()
	armed := s.state.arm()
	s.mu.Unlock()
	if !armed {
		return nil
	}

	// Blocks until Stop disables the context.
	status := C.keytap_enable_context(s.data, s.ctx, C.uintptr_t(handle))

	s.mu.Lock()
	stopped := s.state.stopped
	s.state.disarm()
	s.mu.Unlock()

	if status == 0 && !stopped {
		return fmt.Errorf("enabling record context: %w", ErrContextCreate)
	}
	return nil
}

func (s *recordSource) open() error {
	// Stop talks to the control connection from another thread while the
	// data connection sits in XRecordEnableContext.
	C.XInitThreads()
	C.keytap_install_error_handler()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctrl = C.XOpenDisplay(nil)
	if s.ctrl == nil {
		return fmt.Errorf("opening control connection: %w", ErrDisplayUnavailable)
	}
	s.data = C.XOpenDisplay(nil)
	if s.data == nil {
		return fmt.Errorf("opening data connection: %w", ErrDisplayUnavailable)
	}

	var major, minor C.int
	if C.XRecordQueryVersion(s.ctrl, &major, &minor) == 0 {
		return fmt.Errorf("querying version: %w", ErrRecordUnsupported)
	}
	log.Backend(s.Name(), int(major), int(minor))
	if major != 1 {
		return fmt.Errorf("protocol %d.%d: %w", int(major), int(minor), ErrRecordUnsupported)
	}

	s.ctx = C.keytap_create_context(s.ctrl)
	if s.ctx == 0 {
		return ErrContextCreate
	}
	// The data connection must see the new context before enabling it.
	C.XSync(s.ctrl, C.False)
	return nil
}

func (s *recordSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.stop() {
		s.disableLocked()
	}
	return nil
}

// disableLocked makes XRecordEnableContext return. The server ignores it
// for a context that is not enabled yet, so dispatch re-sends it on
// StartOfData if Stop got there first.
func (s *recordSource) disableLocked() {
	if s.ctrl == nil || s.ctx == 0 {
		return
	}
	C.XRecordDisableContext(s.ctrl, s.ctx)
	C.XFlush(s.ctrl)
}

func (s *recordSource) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ctx != 0 && s.ctrl != nil {
			C.XRecordFreeContext(s.ctrl, s.ctx)
			s.ctx = 0
		}
		if s.data != nil {
			C.XCloseDisplay(s.data)
			s.data = nil
		}
		if s.ctrl != nil {
			C.XCloseDisplay(s.ctrl)
			s.ctrl = nil
		}
	})
}

func (s *recordSource) dispatch(category int, data []byte) {
	if category == recordStartOfData {
		s.mu.Lock()
		if s.state.started() {
			s.disableLocked()
		}
		s.mu.Unlock()
		return
	}
	if ev, ok := DecodeRecord(category, data); ok && s.handler != nil {
		s.handler(ev)
	}
}

//export keytapRecordCallback
func keytapRecordCallback(handle C.uintptr_t, category C.int, data *C.uchar, length C.int) {
	s, ok := cgo.Handle(handle).Value().(*recordSource)
	if !ok {
		return
	}
	var raw []byte
	if data != nil && length > 0 {
		// Valid only until XRecordFreeData; DecodeRecord does not retain it.
		raw = unsafe.Slice((*byte)(unsafe.Pointer(data)), int(length))
	}
	s.dispatch(int(category), raw)
}
