package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"keytap/capture"
	"keytap/emit"
	"keytap/keyevent"
	"keytap/log"
	"keytap/shutdown"
)

var version = "dev"

// session ties one capture source to the output stream for the lifetime of
// the process.
type session struct {
	src     capture.Source
	out     io.Writer
	signals <-chan os.Signal

	// onCaptureThread runs f on the thread the backend requires and
	// returns when f does.
	onCaptureThread func(f func())

	// exit ends the process when a second signal arrives while the
	// first one is still stopping capture.
	exit func(code int)
}

// run blocks until the source stops and returns the process exit code.
func (s session) run() int {
	em := emit.New(s.out)

	var writeWarn sync.Once
	handler := func(ev keyevent.Event) {
		if err := em.Emit(ev); err != nil {
			writeWarn.Do(func() { log.Warnf("write event: %v", err) })
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-s.signals:
			log.Info("signal: " + sig.String())
			if err := s.src.Stop(); err != nil {
				log.Warnf("stopping capture: %v", err)
			}
		case <-done:
			return
		}
		select {
		case <-s.signals:
			log.Warn("second signal, exiting without cleanup")
			s.exit(1)
		case <-done:
		}
	}()

	log.SessionStart(s.src.Name(), version)

	var runErr error
	s.onCaptureThread(func() { runErr = s.src.Run(handler) })
	if runErr != nil {
		log.Errorf("capture: %v", runErr)
		return 1
	}

	log.SessionEnd(em.Count())
	return 0
}

func initCrashLog() {
	logDir, err := log.ResolveDir()
	if err != nil {
		return
	}
	log.SetDir(logDir)
	if err := log.EnsureDir(); err != nil {
		return
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func start() int {
	if err := log.Init(os.Stderr); err != nil {
		log.Warnf("diagnostics file unavailable: %v", err)
	}
	defer log.Close()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	defer shutdown.Stop(sigChan)

	s := session{
		src:             capture.New(),
		out:             os.Stdout,
		signals:         sigChan,
		onCaptureThread: onCaptureThread,
		exit:            os.Exit,
	}
	return s.run()
}
