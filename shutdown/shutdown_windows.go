//go:build windows

package shutdown

import "os"

// Signals on Windows covers Ctrl+C and Ctrl+Break from the console.
func Signals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
