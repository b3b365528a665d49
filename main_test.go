package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"keytap/capture"
)

func direct(f func()) { f() }

// lockedBuffer lets the test read output while the session goroutine writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func xKeyEvent(code byte, keycode byte, state uint16) []byte {
	buf := make([]byte, 32)
	buf[0] = code
	buf[1] = keycode
	binary.LittleEndian.PutUint16(buf[28:], state)
	buf[30] = 1
	return buf
}

func startSession(t *testing.T, src capture.Source, out *lockedBuffer) (chan os.Signal, <-chan int) {
	t.Helper()
	sigs := make(chan os.Signal, 1)
	code := make(chan int, 1)
	s := session{
		src:             src,
		out:             out,
		signals:         sigs,
		onCaptureThread: direct,
		exit:            func(code int) { t.Errorf("unexpected exit(%d)", code) },
	}
	go func() { code <- s.run() }()
	return sigs, code
}

func waitExit(t *testing.T, code <-chan int) int {
	t.Helper()
	select {
	case c := <-code:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session to exit")
		return -1
	}
}

func waitLines(t *testing.T, out *lockedBuffer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for strings.Count(out.String(), "\n") < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d lines, got %q", n, out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionScenarios(t *testing.T) {
	fake := capture.NewFake()
	out := &lockedBuffer{}
	sigs, code := startSession(t, fake, out)

	fake.SimRecord(0, xKeyEvent(xproto.KeyPress, 38, xproto.ModMaskShift))
	fake.SimRecord(0, xKeyEvent(xproto.KeyRelease, 9, 0))
	fake.SimRecord(0, xKeyEvent(xproto.MotionNotify, 0, 0))
	fake.SimRecord(0, nil)
	waitLines(t, out, 2)

	sigs <- syscall.SIGTERM
	if c := waitExit(t, code); c != 0 {
		t.Errorf("exit code = %d, want 0", c)
	}

	want := `{"type":"keydown","keycode":38,"shift":true,"ctrl":false,"alt":false}` + "\n" +
		`{"type":"keyup","keycode":9,"shift":false,"ctrl":false,"alt":false}` + "\n"
	if got := out.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestSessionHookEvents(t *testing.T) {
	fake := capture.NewFake()
	out := &lockedBuffer{}
	sigs, code := startSession(t, fake, out)

	fake.SimHook(0, 0x0104, &capture.HookPayload{VkCode: 0x73}, 0x12)
	fake.SimHook(0, 0x0200, &capture.HookPayload{VkCode: 0x01})
	fake.SimHook(0, 0x0105, &capture.HookPayload{VkCode: 0x73}, 0x11)
	waitLines(t, out, 2)

	sigs <- os.Interrupt
	if c := waitExit(t, code); c != 0 {
		t.Errorf("exit code = %d, want 0", c)
	}

	want := `{"type":"keydown","keycode":115,"shift":false,"ctrl":false,"alt":true}` + "\n" +
		`{"type":"keyup","keycode":115,"shift":false,"ctrl":true,"alt":false}` + "\n"
	if got := out.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestSessionPreservesOrder(t *testing.T) {
	fake := capture.NewFake()
	out := &lockedBuffer{}
	sigs, code := startSession(t, fake, out)

	var want strings.Builder
	for kc := 8; kc < 40; kc++ {
		fake.SimRecord(0, xKeyEvent(xproto.KeyPress, byte(kc), 0))
		want.WriteString(`{"type":"keydown","keycode":`)
		want.WriteString(strconv.Itoa(kc))
		want.WriteString(`,"shift":false,"ctrl":false,"alt":false}` + "\n")
	}
	waitLines(t, out, 32)

	sigs <- os.Interrupt
	waitExit(t, code)

	if got := out.String(); got != want.String() {
		t.Errorf("output out of order:\n%s", got)
	}
}

func TestSessionSetupFailure(t *testing.T) {
	fake := capture.NewFake()
	fake.FailWith(capture.ErrDisplayUnavailable)
	out := &lockedBuffer{}
	_, code := startSession(t, fake, out)

	if c := waitExit(t, code); c != 1 {
		t.Errorf("exit code = %d, want 1", c)
	}
	if out.String() != "" {
		t.Errorf("expected no output, got %q", out.String())
	}
}

// stuckSource ignores Stop, like a backend whose interrupt was lost.
type stuckSource struct {
	release chan struct{}
	stops   chan struct{}
}

func (s *stuckSource) Name() string { return "stuck" }

func (s *stuckSource) Run(capture.Handler) error {
	<-s.release
	return nil
}

func (s *stuckSource) Stop() error {
	s.stops <- struct{}{}
	return nil
}

func TestSessionSecondSignalForcesExit(t *testing.T) {
	src := &stuckSource{release: make(chan struct{}), stops: make(chan struct{}, 1)}
	sigs := make(chan os.Signal, 1)
	exited := make(chan int, 1)
	code := make(chan int, 1)
	s := session{
		src:             src,
		out:             &lockedBuffer{},
		signals:         sigs,
		onCaptureThread: direct,
		exit:            func(c int) { exited <- c },
	}
	go func() { code <- s.run() }()

	sigs <- os.Interrupt
	select {
	case <-src.stops:
	case <-time.After(2 * time.Second):
		t.Fatal("first signal did not call Stop")
	}

	sigs <- os.Interrupt
	select {
	case c := <-exited:
		if c != 1 {
			t.Errorf("exit code = %d, want 1", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force an exit")
	}

	close(src.release)
	waitExit(t, code)
}
