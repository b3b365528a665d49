//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	initCrashLog()

	code := 0
	mainthread.Init(func() { code = start() })
	os.Exit(code)
}

// onCaptureThread runs f on the locked main OS thread. A low-level hook
// only fires while the installing thread sits in its message loop.
func onCaptureThread(f func()) {
	mainthread.Call(f)
}
