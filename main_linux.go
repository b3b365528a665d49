//go:build linux

package main

import "os"

func main() {
	// Set up crash logging early, before any CGO code runs
	initCrashLog()

	os.Exit(start())
}

// onCaptureThread runs f directly: XRecordEnableContext blocks on its own
// display connection and has no thread affinity.
func onCaptureThread(f func()) {
	f()
}
