//go:build windows

package capture

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"keytap/log"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	whKeyboardLL = 13
	wmQuit       = 0x0012
	pmNoRemove   = 0x0000

	asyncKeyDown = 0x8000
)

type point struct {
	x int32
	y int32
}

// winMsg mirrors MSG from winuser.h.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

// hookSource captures keys with a WH_KEYBOARD_LL hook. The hook callback is
// invoked by the OS on the thread that installed it, and only while that
// thread is inside GetMessageW, so Run owns the thread for its lifetime.
type hookSource struct {
	mu       sync.Mutex
	threadID uint32
	hook     uintptr
	stopped  bool

	callback    uintptr
	handler     Handler
	releaseOnce sync.Once
}

func New() Source {
	s := &hookSource{}
	s.callback = windows.NewCallback(s.hookProc)
	return s
}

func (s *hookSource) Name() string { return "llhook" }

func (s *hookSource) Run(h Handler) error {
	if err := user32.Load(); err != nil {
		return fmt.Errorf("user32.dll: %v: %w", err, ErrHookInstall)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.handler = h

	var module windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &module); err != nil {
		return fmt.Errorf("module handle: %v: %w", err, ErrHookInstall)
	}

	// Forces creation of the thread message queue so Stop can post WM_QUIT.
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.threadID = windows.GetCurrentThreadId()
	hook, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, s.callback, uintptr(module), 0)
	if hook == 0 {
		s.mu.Unlock()
		log.Errorf("SetWindowsHookExW failed: %v", callErr)
		return fmt.Errorf("SetWindowsHookExW: %v: %w", callErr, ErrHookInstall)
	}
	s.hook = hook
	s.mu.Unlock()
	defer s.release()

	log.Backend(s.Name(), 0, 0)

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			return fmt.Errorf("GetMessageW: %v", lastErr)
		case 0:
			return nil
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func (s *hookSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.threadID == 0 || s.hook == 0 {
		return nil
	}
	ret, _, err := procPostThreadMessageW.Call(uintptr(s.threadID), wmQuit, 0, 0)
	if ret == 0 {
		return fmt.Errorf("PostThreadMessageW: %w", err)
	}
	return nil
}

func (s *hookSource) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.hook != 0 {
			procUnhookWindowsHookEx.Call(s.hook)
			s.hook = 0
		}
	})
}

func (s *hookSource) hookProc(nCode int32, wParam, lParam uintptr) uintptr {
	var p *HookPayload
	if lParam != 0 {
		p = (*HookPayload)(unsafe.Pointer(lParam))
	}
	if ev, ok := DecodeHook(nCode, wParam, p, asyncKeyState{}); ok && s.handler != nil {
		s.handler(ev)
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

// asyncKeyState reads live key state with GetAsyncKeyState.
type asyncKeyState struct{}

func (asyncKeyState) KeyDown(vk uint32) bool {
	ret, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return uint16(ret)&asyncKeyDown != 0
}
