// Package shutdown delivers the signals that should end a capture session.
package shutdown

import (
	"os"
	"os/signal"
)

// Notify relays termination signals to ch.
func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, Signals()...)
}

// Stop undoes Notify for ch.
func Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}
