//go:build !windows

package shutdown

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestNotifyDeliversSIGTERM(t *testing.T) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	defer Stop(ch)

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case sig := <-ch:
		if sig != syscall.SIGTERM {
			t.Errorf("got %v, want SIGTERM", sig)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func TestSignalsIncludeInterrupt(t *testing.T) {
	found := false
	for _, s := range Signals() {
		if s == os.Interrupt {
			found = true
		}
	}
	if !found {
		t.Error("os.Interrupt missing from Signals()")
	}
}
